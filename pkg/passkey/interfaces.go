// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"context"

	"github.com/go-webauthn/webauthn/webauthn"
)

// UserStore is the credential store collaborator: a durable mapping from
// username to user record. Implementations must apply each operation
// atomically per username; the service serializes same-username calls
// behind a per-key lock, so implementations only need to keep operations
// for different usernames from corrupting each other. Returned records
// belong to the caller: mutating one must not affect what other callers
// see until it is handed back through Save.
type UserStore interface {
	// Get retrieves a user by username.
	// Returns ErrUserNotFound if the user does not exist.
	Get(ctx context.Context, username string) (*User, error)

	// Upsert returns the existing user for username, creating the record
	// (with a fresh opaque handle) if absent. A non-empty displayName
	// updates the stored display name.
	Upsert(ctx context.Context, username, displayName string) (*User, error)

	// Save replaces the stored record for user.Username.
	// Either the full record is persisted or the prior version remains.
	Save(ctx context.Context, user *User) error

	// List returns all user records.
	List(ctx context.Context) ([]*User, error)
}

// ChallengeStore is the challenge ledger collaborator: a short-lived
// mapping from username to the single outstanding ceremony session. The
// session data carries the challenge together with the ceremony's bound
// user handle and verification policy.
type ChallengeStore interface {
	// Set records the outstanding session for username, silently replacing
	// any prior one.
	Set(ctx context.Context, username string, data *webauthn.SessionData) error

	// Pop atomically reads and deletes the outstanding session for
	// username. Returns ErrChallengeExpired if none exists; a popped
	// session is gone regardless of the subsequent verification outcome.
	Pop(ctx context.Context, username string) (*webauthn.SessionData, error)
}

// SessionIssuer turns a verified ceremony into an authenticated session
// token. It is notified on every successful registration or authentication.
type SessionIssuer interface {
	// Issue creates a session token for the verified user.
	Issue(ctx context.Context, username, displayName string) (*Session, error)
}
