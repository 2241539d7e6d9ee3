// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"context"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// MemoryUserStore is an in-memory UserStore for development and tests.
// Stored records are only touched while holding the mutex; every method
// exchanges clones, so callers may read and mutate what they get back
// without synchronizing with concurrent readers such as List.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]*User),
	}
}

// Get retrieves a user by username.
func (s *MemoryUserStore) Get(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.Clone(), nil
}

// Upsert returns the existing user or creates a new one. A non-empty
// displayName updates the stored display name.
func (s *MemoryUserStore) Upsert(_ context.Context, username, displayName string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.users[username]; ok {
		if displayName != "" {
			user.DisplayName = displayName
		}
		return user.Clone(), nil
	}

	user := NewUser(username, displayName)
	s.users[username] = user
	return user.Clone(), nil
}

// Save persists a user record.
func (s *MemoryUserStore) Save(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[user.Username] = user.Clone()
	return nil
}

// List returns all user records.
func (s *MemoryUserStore) List(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user.Clone())
	}
	return users, nil
}

// challengeEntry pairs a recorded ceremony session with its issue time.
type challengeEntry struct {
	session  *webauthn.SessionData
	issuedAt time.Time
}

// MemoryChallengeStore is an in-memory ChallengeStore. At most one
// challenge is outstanding per username; recording a new one replaces the
// previous entry, and Pop removes whatever it returns.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]challengeEntry
}

// NewMemoryChallengeStore creates an empty in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[string]challengeEntry),
	}
}

// Set records session as the outstanding challenge for username,
// replacing any previous one.
func (s *MemoryChallengeStore) Set(_ context.Context, username string, session *webauthn.SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[username] = challengeEntry{
		session:  session,
		issuedAt: time.Now().UTC(),
	}
	return nil
}

// Pop removes and returns the outstanding challenge for username. A
// second Pop for the same challenge fails with ErrChallengeExpired.
func (s *MemoryChallengeStore) Pop(_ context.Context, username string) (*webauthn.SessionData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.challenges[username]
	if !ok {
		return nil, ErrChallengeExpired
	}
	delete(s.challenges, username)
	return entry.session, nil
}

// Len returns the number of outstanding challenges.
func (s *MemoryChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}
