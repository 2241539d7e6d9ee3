// Copyright (c) 2026 Veridian Labs
//
// This file is part of passkey-server.
//
// passkey-server is licensed under the GNU Affero General Public License v3.0.
// See the LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package config loads the server configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use values like
// "90s" or "1h", which yaml.v3 cannot decode into time.Duration
// directly.
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q (expected a value like \"30s\" or \"5m\"): %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in time.Duration notation.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete server configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	RelyingParty RelyingPartyConfig `yaml:"relying_party"`
	Policy       PolicyConfig       `yaml:"policy"`
	Session      SessionConfig      `yaml:"session"`
	Storage      StorageConfig      `yaml:"storage"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// TLS serves the API over HTTPS. Browsers only expose WebAuthn in
	// secure contexts, so production deployments need this (localhost is
	// exempt).
	TLS TLSConfig `yaml:"tls"`

	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// TLSConfig controls TLS settings
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RelyingPartyConfig identifies this server to authenticators
type RelyingPartyConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Origins     []string `yaml:"origins"`
	Attestation string   `yaml:"attestation"`
	Timeout     Duration `yaml:"timeout"`
}

// PolicyConfig controls the user-verification mode
type PolicyConfig struct {
	// Mode is one of touch_only, pin_required, preferred.
	Mode string `yaml:"mode"`

	// LockMode freezes the mode at startup; runtime changes then fail.
	LockMode bool `yaml:"lock_mode"`
}

// SessionConfig controls JWT session issuance
type SessionConfig struct {
	// Secret is the HMAC signing key. Empty means a random per-process
	// key: sessions stop verifying across restarts.
	Secret string `yaml:"secret"`

	Issuer   string   `yaml:"issuer"`
	Validity Duration `yaml:"validity"`
}

// StorageConfig selects the user record store
type StorageConfig struct {
	// Backend is "memory" or "jsonfile".
	Backend string `yaml:"backend"`

	// Path is the record directory for the jsonfile backend.
	Path string `yaml:"path"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a configuration suitable for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		RelyingParty: RelyingPartyConfig{
			ID:          "localhost",
			Name:        "Passkey Demo",
			Origins:     []string{"http://localhost:8080"},
			Attestation: "none",
			Timeout:     Duration(60 * time.Second),
		},
		Policy: PolicyConfig{
			Mode: "preferred",
		},
		Session: SessionConfig{
			Issuer:   "passkey-server",
			Validity: Duration(time.Hour),
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load reads configuration from a YAML file and applies environment
// variable overrides. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config file when path is non-empty, otherwise
// returns defaults with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("PASSKEY_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PASSKEY_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			log.Printf("Warning: invalid PASSKEY_PORT value %q, using default %d: %v",
				portStr, cfg.Server.Port, err)
		} else if port < 1 || port > 65535 {
			log.Printf("Warning: invalid PASSKEY_PORT value %q (out of range 1-65535), using default %d",
				portStr, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}

	if level := os.Getenv("PASSKEY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("PASSKEY_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if rpID := os.Getenv("PASSKEY_RP_ID"); rpID != "" {
		cfg.RelyingParty.ID = rpID
	}
	if origins := os.Getenv("PASSKEY_RP_ORIGINS"); origins != "" {
		cfg.RelyingParty.Origins = strings.Split(origins, ",")
	}

	if mode := os.Getenv("PASSKEY_MODE"); mode != "" {
		cfg.Policy.Mode = mode
	}

	if secret := os.Getenv("PASSKEY_SESSION_SECRET"); secret != "" {
		cfg.Session.Secret = secret
	}

	if dataDir := os.Getenv("PASSKEY_DATA_DIR"); dataDir != "" {
		cfg.Storage.Backend = "jsonfile"
		cfg.Storage.Path = dataDir
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.RelyingParty.ID == "" {
		return fmt.Errorf("relying party id must be specified")
	}
	if c.RelyingParty.Name == "" {
		return fmt.Errorf("relying party name must be specified")
	}
	if len(c.RelyingParty.Origins) == 0 {
		return fmt.Errorf("at least one relying party origin must be specified")
	}

	switch c.Storage.Backend {
	case "memory":
	case "jsonfile":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the jsonfile backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be memory or jsonfile)", c.Storage.Backend)
	}

	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key_file is required when TLS is enabled")
		}
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics path is required when metrics are enabled")
	}

	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
