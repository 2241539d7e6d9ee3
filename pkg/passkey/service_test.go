// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		RPID:      "example.com",
		RPName:    "Example",
		RPOrigins: []string{"https://example.com"},
	}
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		params  ServiceParams
		wantErr string
	}{
		{
			name:    "nil config",
			params:  ServiceParams{},
			wantErr: "config is required",
		},
		{
			name: "nil user store",
			params: ServiceParams{
				Config: validTestConfig(),
			},
			wantErr: "user store is required",
		},
		{
			name: "nil challenge store",
			params: ServiceParams{
				Config:    validTestConfig(),
				UserStore: NewMemoryUserStore(),
			},
			wantErr: "challenge store is required",
		},
		{
			name: "invalid config",
			params: ServiceParams{
				Config:         &Config{}, // missing required fields
				UserStore:      NewMemoryUserStore(),
				ChallengeStore: NewMemoryChallengeStore(),
			},
			wantErr: "invalid config",
		},
		{
			name: "invalid mode",
			params: ServiceParams{
				Config: &Config{
					RPID:      "example.com",
					RPName:    "Example",
					RPOrigins: []string{"https://example.com"},
					Mode:      "retina_scan",
				},
				UserStore:      NewMemoryUserStore(),
				ChallengeStore: NewMemoryChallengeStore(),
			},
			wantErr: "invalid config",
		},
		{
			name: "valid params",
			params: ServiceParams{
				Config:         validTestConfig(),
				UserStore:      NewMemoryUserStore(),
				ChallengeStore: NewMemoryChallengeStore(),
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.params)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, svc)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, svc)
				assert.NotNil(t, svc.Config())
			}
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "simple", input: "alice", want: "alice"},
		{name: "email style", input: "alice@example.com", want: "alice@example.com"},
		{name: "uppercase folded", input: "Alice@Example.COM", want: "alice@example.com"},
		{name: "surrounding whitespace trimmed", input: "  bob  ", want: "bob"},
		{name: "dots dashes underscores", input: "a.b-c_d", want: "a.b-c_d"},
		{name: "empty", input: "", wantErr: true},
		{name: "only whitespace", input: "   ", wantErr: true},
		{name: "interior space", input: "alice smith", wantErr: true},
		{name: "slash", input: "alice/admin", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 65), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeUsername(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidUsername)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestService_InvalidUsernameRejectedBeforeStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	svc, err := NewService(ServiceParams{
		Config:         validTestConfig(),
		UserStore:      store,
		ChallengeStore: NewMemoryChallengeStore(),
	})
	require.NoError(t, err)

	_, err = svc.BeginRegistration(ctx, "bad user!", "Bad User")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	// No record was created for the rejected name.
	users, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	_, err = svc.BeginAuthentication(ctx, "bad user!")
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.FinishRegistration(ctx, "bad user!", nil)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.FinishAuthentication(ctx, "bad user!", nil)
	assert.ErrorIs(t, err, ErrInvalidUsername)
}

func TestService_UsernameCaseFolded(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	svc, err := NewService(ServiceParams{
		Config:         validTestConfig(),
		UserStore:      store,
		ChallengeStore: NewMemoryChallengeStore(),
	})
	require.NoError(t, err)

	_, err = svc.BeginRegistration(ctx, "Alice@Example.COM", "Alice")
	require.NoError(t, err)

	// Both spellings resolve to one record.
	_, err = svc.BeginRegistration(ctx, "alice@example.com", "")
	require.NoError(t, err)

	users, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alice@example.com", users[0].Username)
}

func TestService_FinishRegistrationWithoutChallenge(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(ServiceParams{
		Config:         validTestConfig(),
		UserStore:      NewMemoryUserStore(),
		ChallengeStore: NewMemoryChallengeStore(),
	})
	require.NoError(t, err)

	_, err = svc.FinishRegistration(ctx, "alice", nil)
	require.Error(t, err)
	assert.True(t, IsChallengeExpired(err))
}

func TestService_ModeControls(t *testing.T) {
	svc, err := NewService(ServiceParams{
		Config:         validTestConfig(),
		UserStore:      NewMemoryUserStore(),
		ChallengeStore: NewMemoryChallengeStore(),
	})
	require.NoError(t, err)

	// Defaults to preferred.
	assert.Equal(t, ModePreferred, svc.Mode())
	assert.False(t, svc.ModeLocked())

	require.NoError(t, svc.SetMode(ModePinRequired))
	assert.Equal(t, ModePinRequired, svc.Mode())

	err = svc.SetMode(Mode("retina_scan"))
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, ModePinRequired, svc.Mode())

	svc.LockMode()
	assert.True(t, svc.ModeLocked())

	err = svc.SetMode(ModeTouchOnly)
	assert.ErrorIs(t, err, ErrPolicyLocked)
	assert.Equal(t, ModePinRequired, svc.Mode())
}

func TestService_ModeLockedFromConfig(t *testing.T) {
	cfg := validTestConfig()
	cfg.Mode = string(ModeTouchOnly)
	cfg.LockMode = true

	svc, err := NewService(ServiceParams{
		Config:         cfg,
		UserStore:      NewMemoryUserStore(),
		ChallengeStore: NewMemoryChallengeStore(),
	})
	require.NoError(t, err)

	assert.Equal(t, ModeTouchOnly, svc.Mode())
	assert.True(t, svc.ModeLocked())
	assert.ErrorIs(t, svc.SetMode(ModePreferred), ErrPolicyLocked)
}

func TestService_ListUsersSorted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	svc, err := NewService(ServiceParams{
		Config:         validTestConfig(),
		UserStore:      store,
		ChallengeStore: NewMemoryChallengeStore(),
	})
	require.NoError(t, err)

	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := store.Upsert(ctx, name, "")
		require.NoError(t, err)
	}

	summaries, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, "alice", summaries[0].Username)
	assert.Equal(t, "bob", summaries[1].Username)
	assert.Equal(t, "carol", summaries[2].Username)
	for _, s := range summaries {
		assert.Zero(t, s.Credentials)
	}
}

func TestCounterAcceptable(t *testing.T) {
	tests := []struct {
		name     string
		stored   uint32
		reported uint32
		want     bool
	}{
		{name: "both zero", stored: 0, reported: 0, want: true},
		{name: "first increment", stored: 0, reported: 1, want: true},
		{name: "jump forward", stored: 3, reported: 10, want: true},
		{name: "repeat nonzero", stored: 5, reported: 5, want: false},
		{name: "regression", stored: 5, reported: 4, want: false},
		{name: "reset to zero", stored: 5, reported: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, counterAcceptable(tt.stored, tt.reported))
		})
	}
}
