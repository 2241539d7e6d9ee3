// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package http

// HeaderUsername carries the account username on ceremony finish requests,
// whose bodies are raw authenticator responses.
const HeaderUsername = "X-Username"

// SessionCookieName is the cookie carrying the session token after a
// verified ceremony.
const SessionCookieName = "passkey_session"

// BeginRegistrationRequest is the request body for starting registration.
type BeginRegistrationRequest struct {
	// Username is the account identifier (required).
	Username string `json:"username"`

	// DisplayName is the user's display name (optional, defaults to the
	// username).
	DisplayName string `json:"display_name,omitempty"`
}

// BeginAuthenticationRequest is the request body for starting
// authentication.
type BeginAuthenticationRequest struct {
	// Username is the account identifier (required).
	Username string `json:"username"`
}

// ModeResponse reports the active user-verification mode.
type ModeResponse struct {
	// Mode is the active mode: touch_only, pin_required or preferred.
	Mode string `json:"mode"`

	// Locked indicates the mode can no longer be changed.
	Locked bool `json:"locked"`
}

// SetModeRequest is the request body for changing the mode.
type SetModeRequest struct {
	Mode string `json:"mode"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeInvalidUsername    = "invalid_username"
	ErrorCodeUserNotFound       = "user_not_found"
	ErrorCodeChallengeExpired   = "challenge_expired"
	ErrorCodeCredentialNotFound = "credential_not_found"
	ErrorCodeVerificationFailed = "verification_failed"
	ErrorCodePolicyLocked       = "policy_locked"
	ErrorCodeInvalidMode        = "invalid_mode"
	ErrorCodeInternalError      = "internal_error"
)
