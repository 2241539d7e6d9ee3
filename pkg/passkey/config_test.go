// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

package passkey

import (
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "missing RPID",
			config:  Config{RPName: "Example", RPOrigins: []string{"https://example.com"}},
			wantErr: "RPID is required",
		},
		{
			name:    "missing RPName",
			config:  Config{RPID: "example.com", RPOrigins: []string{"https://example.com"}},
			wantErr: "RPName is required",
		},
		{
			name:    "missing origins",
			config:  Config{RPID: "example.com", RPName: "Example"},
			wantErr: "at least one RPOrigin is required",
		},
		{
			name: "invalid attestation",
			config: Config{
				RPID: "example.com", RPName: "Example",
				RPOrigins:   []string{"https://example.com"},
				Attestation: "enterprise",
			},
			wantErr: "invalid attestation preference",
		},
		{
			name: "invalid mode",
			config: Config{
				RPID: "example.com", RPName: "Example",
				RPOrigins: []string{"https://example.com"},
				Mode:      "voiceprint",
			},
			wantErr: "invalid user verification mode",
		},
		{
			name: "valid minimal",
			config: Config{
				RPID: "example.com", RPName: "Example",
				RPOrigins: []string{"https://example.com"},
			},
		},
		{
			name: "valid full",
			config: Config{
				RPID: "example.com", RPName: "Example",
				RPOrigins:   []string{"https://example.com", "https://www.example.com"},
				Timeout:     2 * time.Minute,
				Attestation: "direct",
				Mode:        "pin_required",
				LockMode:    true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()

	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, "none", cfg.Attestation)
	assert.Equal(t, string(ModePreferred), cfg.Mode)

	// Explicit values survive.
	cfg = Config{Timeout: time.Minute, Attestation: "direct", Mode: "touch_only"}
	cfg.SetDefaults()
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, "direct", cfg.Attestation)
	assert.Equal(t, "touch_only", cfg.Mode)
}

func TestCredentialParameters(t *testing.T) {
	params := credentialParameters()
	require.Len(t, params, 3)
	assert.Equal(t, webauthncose.AlgEdDSA, params[0].Algorithm)
	assert.Equal(t, webauthncose.AlgES256, params[1].Algorithm)
	assert.Equal(t, webauthncose.AlgRS256, params[2].Algorithm)
	for _, p := range params {
		assert.Equal(t, protocol.PublicKeyCredentialType, p.Type)
	}
}

func TestConfig_ToWebAuthnConfig(t *testing.T) {
	cfg := Config{
		RPID:        "example.com",
		RPName:      "Example",
		RPOrigins:   []string{"https://example.com"},
		Timeout:     90 * time.Second,
		Attestation: "direct",
	}

	wcfg := cfg.toWebAuthnConfig()
	assert.Equal(t, "example.com", wcfg.RPID)
	assert.Equal(t, "Example", wcfg.RPDisplayName)
	assert.Equal(t, []string{"https://example.com"}, wcfg.RPOrigins)
	assert.Equal(t, protocol.PreferDirectAttestation, wcfg.AttestationPreference)
	assert.True(t, wcfg.Timeouts.Login.Enforce)
	assert.Equal(t, 90*time.Second, wcfg.Timeouts.Login.Timeout)
	assert.True(t, wcfg.Timeouts.Registration.Enforce)
	assert.Equal(t, 90*time.Second, wcfg.Timeouts.Registration.Timeout)
}
