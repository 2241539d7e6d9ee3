// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryUserStore_GetUnknown(t *testing.T) {
	store := NewMemoryUserStore()

	_, err := store.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryUserStore_UpsertCreatesOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	created, err := store.Upsert(ctx, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, "Alice", created.DisplayName)
	assert.Len(t, created.ID, 16)

	again, err := store.Upsert(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Alice", again.DisplayName, "empty display name must not clobber")

	renamed, err := store.Upsert(ctx, "alice", "Alice Cooper")
	require.NoError(t, err)
	assert.Equal(t, created.ID, renamed.ID)
	assert.Equal(t, "Alice Cooper", renamed.DisplayName)
}

func TestMemoryUserStore_SaveAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	user, err := store.Upsert(ctx, "bob", "Bob")
	require.NoError(t, err)

	user.AddCredential(Credential{ID: []byte("cred-1"), PublicKey: []byte("pk")})
	require.NoError(t, store.Save(ctx, user))

	got, err := store.Get(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, got.Credentials, 1)

	users, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestMemoryUserStore_ReturnsIsolatedCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	user, err := store.Upsert(ctx, "carol", "Carol")
	require.NoError(t, err)

	// Mutating a returned record must not touch the stored one.
	user.DisplayName = "Changed"
	user.AddCredential(Credential{ID: []byte("cred-1")})

	got, err := store.Get(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, "Carol", got.DisplayName)
	assert.Empty(t, got.Credentials)

	require.NoError(t, store.Save(ctx, user))

	// Nor may mutating a listed record leak back into the store.
	users, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Len(t, users[0].Credentials, 1)
	users[0].Credentials[0].SignCount = 99

	got, err = store.Get(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.Credentials[0].SignCount)
}

func TestMemoryUserStore_ListDuringWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	_, err := store.Upsert(ctx, "dave", "Dave")
	require.NoError(t, err)

	// One goroutine grows the credential set through the ceremony path
	// (Get, mutate, Save) while another walks List the way the inventory
	// collector does. The store must keep the two isolated.
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			user, err := store.Get(ctx, "dave")
			if err != nil {
				return
			}
			user.AddCredential(Credential{ID: []byte(fmt.Sprintf("cred-%d", i))})
			if err := store.Save(ctx, user); err != nil {
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			users, err := store.List(ctx)
			if err != nil {
				return
			}
			for _, u := range users {
				_ = len(u.Credentials)
			}
		}
	}()

	wg.Wait()

	got, err := store.Get(ctx, "dave")
	require.NoError(t, err)
	assert.Len(t, got.Credentials, 100)
}

func TestMemoryChallengeStore_PopOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()

	session := &webauthn.SessionData{Challenge: "abc123"}
	require.NoError(t, store.Set(ctx, "alice", session))
	assert.Equal(t, 1, store.Len())

	got, err := store.Pop(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "abc123", got.Challenge)
	assert.Equal(t, 0, store.Len())

	_, err = store.Pop(ctx, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestMemoryChallengeStore_SetReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()

	require.NoError(t, store.Set(ctx, "alice", &webauthn.SessionData{Challenge: "first"}))
	require.NoError(t, store.Set(ctx, "alice", &webauthn.SessionData{Challenge: "second"}))
	assert.Equal(t, 1, store.Len())

	got, err := store.Pop(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Challenge)
}

func TestMemoryChallengeStore_PerUsername(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()

	require.NoError(t, store.Set(ctx, "alice", &webauthn.SessionData{Challenge: "a"}))
	require.NoError(t, store.Set(ctx, "bob", &webauthn.SessionData{Challenge: "b"}))

	got, err := store.Pop(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Challenge)

	// Bob's challenge is untouched.
	got, err = store.Pop(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "b", got.Challenge)
}

func TestMemoryChallengeStore_ConcurrentPopSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChallengeStore()
	require.NoError(t, store.Set(ctx, "alice", &webauthn.SessionData{Challenge: "race"}))

	const workers = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Pop(ctx, "alice"); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	assert.Len(t, wins, 1, "exactly one Pop may succeed")
}
