// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// User is the relying party's record for one account. The ID is the opaque
// protocol-level user handle; Username is the human-readable lookup key.
type User struct {
	// ID is the WebAuthn user handle, assigned at creation and immutable.
	ID []byte `json:"id"`

	// Username is the unique, case-normalized account handle.
	Username string `json:"username"`

	// DisplayName is a mutable, cosmetic label.
	DisplayName string `json:"display_name"`

	// Credentials are the hardware key bindings registered for this user,
	// unique by credential ID.
	Credentials []Credential `json:"credentials"`

	// CreatedAt is when the record was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a user record with a fresh opaque handle.
func NewUser(username, displayName string) *User {
	id := uuid.New()
	return &User{
		ID:          id[:],
		Username:    username,
		DisplayName: displayName,
		Credentials: make([]Credential, 0),
		CreatedAt:   time.Now().UTC(),
	}
}

// Credential is one hardware key binding stored by the relying party.
type Credential struct {
	// ID is the credential identifier assigned by the authenticator.
	ID []byte `json:"id"`

	// PublicKey is the credential's public key in COSE format.
	PublicKey []byte `json:"public_key"`

	// AttestationType records the attestation format used at registration.
	AttestationType string `json:"attestation_type"`

	// Transports are advisory connection hints (usb, nfc, ble, internal).
	Transports []protocol.AuthenticatorTransport `json:"transports,omitempty"`

	// Flags captures the authenticator flags observed at registration.
	Flags CredentialFlags `json:"flags"`

	// AAGUID is the authenticator model identifier.
	AAGUID []byte `json:"aaguid"`

	// SignCount is the monotonic usage counter reported by the
	// authenticator. Zero forever for authenticators without a counter.
	SignCount uint32 `json:"sign_count"`

	// Attachment records how the authenticator was attached.
	Attachment protocol.AuthenticatorAttachment `json:"attachment,omitempty"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last passed authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// CredentialFlags are the device-backing flags captured at registration.
type CredentialFlags struct {
	// UserPresent indicates the user was present during the ceremony.
	UserPresent bool `json:"user_present"`

	// UserVerified indicates PIN/biometric verification was performed.
	UserVerified bool `json:"user_verified"`

	// BackupEligible indicates the credential can be synced off-device.
	BackupEligible bool `json:"backup_eligible"`

	// BackupState indicates the credential is currently backed up.
	BackupState bool `json:"backup_state"`
}

// ToWebAuthn converts a stored credential to the go-webauthn type.
func (c *Credential) ToWebAuthn() webauthn.Credential {
	return webauthn.Credential{
		ID:              c.ID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Transport:       c.Transports,
		Flags: webauthn.CredentialFlags{
			UserPresent:    c.Flags.UserPresent,
			UserVerified:   c.Flags.UserVerified,
			BackupEligible: c.Flags.BackupEligible,
			BackupState:    c.Flags.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:     c.AAGUID,
			SignCount:  c.SignCount,
			Attachment: c.Attachment,
		},
	}
}

// FromWebAuthnCredential builds a stored credential from the go-webauthn
// type returned by a successful registration ceremony.
func FromWebAuthnCredential(wc *webauthn.Credential) Credential {
	return Credential{
		ID:              wc.ID,
		PublicKey:       wc.PublicKey,
		AttestationType: wc.AttestationType,
		Transports:      wc.Transport,
		Flags: CredentialFlags{
			UserPresent:    wc.Flags.UserPresent,
			UserVerified:   wc.Flags.UserVerified,
			BackupEligible: wc.Flags.BackupEligible,
			BackupState:    wc.Flags.BackupState,
		},
		AAGUID:     wc.Authenticator.AAGUID,
		SignCount:  wc.Authenticator.SignCount,
		Attachment: wc.Authenticator.Attachment,
		CreatedAt:  time.Now().UTC(),
	}
}

// WebAuthnID returns the opaque user handle.
func (u *User) WebAuthnID() []byte {
	return u.ID
}

// WebAuthnName returns the account username.
func (u *User) WebAuthnName() string {
	return u.Username
}

// WebAuthnDisplayName returns the display name, falling back to the username.
func (u *User) WebAuthnDisplayName() string {
	if u.DisplayName == "" {
		return u.Username
	}
	return u.DisplayName
}

// WebAuthnCredentials returns the registered credentials in go-webauthn form.
func (u *User) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.Credentials))
	for i := range u.Credentials {
		creds[i] = u.Credentials[i].ToWebAuthn()
	}
	return creds
}

// Credential returns the stored credential with the given ID, or nil.
func (u *User) Credential(credID []byte) *Credential {
	for i := range u.Credentials {
		if string(u.Credentials[i].ID) == string(credID) {
			return &u.Credentials[i]
		}
	}
	return nil
}

// AddCredential appends a credential unless one with the same ID is already
// present. Returns true if the credential was added.
func (u *User) AddCredential(cred Credential) bool {
	if u.Credential(cred.ID) != nil {
		return false
	}
	u.Credentials = append(u.Credentials, cred)
	return true
}

// Clone returns a copy of the user with its own credential slice. The byte
// fields are write-once and remain shared.
func (u *User) Clone() *User {
	clone := *u
	clone.Credentials = make([]Credential, len(u.Credentials))
	copy(clone.Credentials, u.Credentials)
	return &clone
}

// RegistrationResult is the outcome of a registration ceremony. A failed
// cryptographic check is reported through Verified, not through an error.
type RegistrationResult struct {
	// Verified reports whether the attestation response passed all checks.
	Verified bool `json:"verified"`

	// Reason describes why verification failed. Empty when Verified.
	Reason string `json:"reason,omitempty"`

	// CredentialID is the registered credential's ID, URL-safe base64.
	CredentialID string `json:"credential_id,omitempty"`

	// CredentialCount is the user's credential count after the ceremony.
	CredentialCount int `json:"credential_count,omitempty"`

	// Session is the issued session token, when an issuer is configured.
	Session *Session `json:"session,omitempty"`
}

// AuthenticationResult is the outcome of an authentication ceremony.
type AuthenticationResult struct {
	// Verified reports whether the assertion passed all checks, including
	// the sign counter invariant.
	Verified bool `json:"verified"`

	// Reason describes why verification failed. Empty when Verified.
	Reason string `json:"reason,omitempty"`

	// CredentialID is the asserted credential's ID, URL-safe base64.
	CredentialID string `json:"credential_id,omitempty"`

	// SignCount is the counter value persisted after the ceremony.
	SignCount uint32 `json:"sign_count"`

	// UserVerified reports whether the authenticator performed user
	// verification (PIN/biometric) during the ceremony.
	UserVerified bool `json:"user_verified"`

	// Session is the issued session token, when an issuer is configured.
	Session *Session `json:"session,omitempty"`
}

// UserSummary is the listing view of a user record.
type UserSummary struct {
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Credentials int       `json:"credentials"`
	CreatedAt   time.Time `json:"created_at"`
}
