// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"fmt"
	"sync"

	"github.com/go-webauthn/webauthn/protocol"
)

// Mode is the process-wide user-verification policy.
type Mode string

const (
	// ModeTouchOnly demands no user verification: possession of the key
	// and a touch is enough.
	ModeTouchOnly Mode = "touch_only"

	// ModePinRequired makes PIN/biometric verification mandatory;
	// ceremonies fail when the authenticator does not report it.
	ModePinRequired Mode = "pin_required"

	// ModePreferred requests verification opportunistically and accepts
	// responses that omit it.
	ModePreferred Mode = "preferred"
)

// ParseMode parses a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTouchOnly, ModePinRequired, ModePreferred:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Requirement maps the mode to the protocol-level user-verification
// requirement carried in ceremony options.
func (m Mode) Requirement() protocol.UserVerificationRequirement {
	switch m {
	case ModeTouchOnly:
		return protocol.VerificationDiscouraged
	case ModePinRequired:
		return protocol.VerificationRequired
	default:
		return protocol.VerificationPreferred
	}
}

// ModeSelector is the process-wide policy switch. Reads observe the most
// recent successful write; Lock is a one-way gate after which SetMode
// fails with ErrPolicyLocked for the remainder of the process lifetime.
type ModeSelector struct {
	mu     sync.RWMutex
	mode   Mode
	locked bool
}

// NewModeSelector creates a selector starting in the given mode.
func NewModeSelector(mode Mode) *ModeSelector {
	if mode == "" {
		mode = ModePreferred
	}
	return &ModeSelector{mode: mode}
}

// Mode returns the current mode.
func (s *ModeSelector) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode changes the current mode. Returns ErrPolicyLocked once the
// selector is locked and ErrInvalidMode for unknown modes.
func (s *ModeSelector) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return ErrPolicyLocked
	}
	s.mode = mode
	return nil
}

// Lock permanently locks the selector at its current mode.
func (s *ModeSelector) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
}

// Locked reports whether the selector has been locked.
func (s *ModeSelector) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}
