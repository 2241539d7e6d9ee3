// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"errors"
	"fmt"
)

// Sentinel errors for passkey operations. These cover request-shape
// failures that are rejected before any cryptographic work; a ceremony that
// parses but fails its cryptographic checks is reported as Verified=false
// on the result, never as an error.
var (
	// ErrInvalidUsername is returned when a username fails format
	// validation. Storage is never consulted for an invalid username.
	ErrInvalidUsername = errors.New("invalid username")

	// ErrUserNotFound is returned when a user record is absent where one
	// is required. At the authentication-options boundary it also covers
	// "user exists but has no credentials", so callers cannot enumerate
	// accounts by distinguishing the two.
	ErrUserNotFound = errors.New("user not found")

	// ErrChallengeExpired is returned when no outstanding challenge exists
	// for the username: never issued, already consumed, or overwritten by
	// a newer ceremony.
	ErrChallengeExpired = errors.New("challenge expired or not found")

	// ErrCredentialNotFound is returned when an assertion references a
	// credential ID not on file for the claimed user.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrPolicyLocked is returned when a mode change is attempted after
	// the policy selector has been locked.
	ErrPolicyLocked = errors.New("verification policy is locked")

	// ErrInvalidMode is returned for an unknown user-verification mode.
	ErrInvalidMode = errors.New("invalid user verification mode")
)

// Error wraps an error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error with an operation name if it's not nil.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// IsUserNotFound reports whether the error indicates a missing user.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsChallengeExpired reports whether the error indicates a missing or
// consumed challenge.
func IsChallengeExpired(err error) bool {
	return errors.Is(err, ErrChallengeExpired)
}

// IsCredentialNotFound reports whether the error indicates an unknown
// credential ID.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}
