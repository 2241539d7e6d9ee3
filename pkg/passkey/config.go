// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Config configures the passkey service's relying-party identity and
// ceremony parameters.
type Config struct {
	// RPID is the relying party identifier, typically the domain name.
	// Example: "example.com"
	RPID string `yaml:"id" json:"id"`

	// RPName is the human-readable name of the relying party.
	RPName string `yaml:"name" json:"name"`

	// RPOrigins are the allowed origins for ceremony responses.
	// Example: []string{"https://example.com"}
	RPOrigins []string `yaml:"origins" json:"origins"`

	// Timeout bounds a ceremony between options issuance and response.
	// Default: 60 seconds.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Attestation is the attestation conveyance preference.
	// Options: "none", "direct". Default: "none".
	Attestation string `yaml:"attestation" json:"attestation"`

	// Mode is the initial user-verification mode.
	// Options: "touch_only", "pin_required", "preferred".
	// Default: "preferred".
	Mode string `yaml:"mode" json:"mode"`

	// LockMode permanently locks the mode at startup. Once locked, mode
	// changes fail for the remainder of the process lifetime.
	LockMode bool `yaml:"lock_mode" json:"lock_mode"`

	// Debug enables debug logging inside the verification library.
	Debug bool `yaml:"debug" json:"debug"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("RPID is required")
	}
	if c.RPName == "" {
		return fmt.Errorf("RPName is required")
	}
	if len(c.RPOrigins) == 0 {
		return fmt.Errorf("at least one RPOrigin is required")
	}

	switch c.Attestation {
	case "", "none", "direct":
	default:
		return fmt.Errorf("invalid attestation preference: %s", c.Attestation)
	}

	if c.Mode != "" {
		if _, err := ParseMode(c.Mode); err != nil {
			return err
		}
	}

	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.Attestation == "" {
		c.Attestation = "none"
	}
	if c.Mode == "" {
		c.Mode = string(ModePreferred)
	}
}

// credentialParameters is the ordered list of acceptable signature
// algorithms offered during registration: EdDSA (-8), ES256 (-7),
// RS256 (-257).
func credentialParameters() []protocol.CredentialParameter {
	return []protocol.CredentialParameter{
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgEdDSA},
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgRS256},
	}
}

// conveyancePreference maps the configured attestation string to the
// protocol-level preference.
func (c *Config) conveyancePreference() protocol.ConveyancePreference {
	if c.Attestation == "direct" {
		return protocol.PreferDirectAttestation
	}
	return protocol.PreferNoAttestation
}

// toWebAuthnConfig converts the Config to the go-webauthn configuration.
func (c *Config) toWebAuthnConfig() *webauthn.Config {
	cfg := &webauthn.Config{
		RPID:                  c.RPID,
		RPDisplayName:         c.RPName,
		RPOrigins:             c.RPOrigins,
		AttestationPreference: c.conveyancePreference(),
		Debug:                 c.Debug,
	}

	if c.Timeout > 0 {
		cfg.Timeouts = webauthn.TimeoutsConfig{
			Login: webauthn.TimeoutConfig{
				Enforce:    true,
				Timeout:    c.Timeout,
				TimeoutUVD: c.Timeout,
			},
			Registration: webauthn.TimeoutConfig{
				Enforce:    true,
				Timeout:    c.Timeout,
				TimeoutUVD: c.Timeout,
			},
		}
	}

	return cfg
}
