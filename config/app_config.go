// Package config — application configuration.
//
// Settings are stored in ~/.asksql/config.json. Values can be overridden
// by environment variables (ASKSQL_*), which may themselves come from a
// .env file in the working directory.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend modes.
const (
	ModeHTTP = "http"
	ModeMock = "mock"
)

// Environment variable names.
const (
	EnvBackendURL   = "ASKSQL_BACKEND_URL"
	EnvMode         = "ASKSQL_MODE"
	EnvMockFallback = "ASKSQL_MOCK_FALLBACK"
	EnvTimeout      = "ASKSQL_TIMEOUT_SECONDS"
	EnvDBProfile    = "ASKSQL_DB_PROFILE"
	EnvDBPassword   = "ASKSQL_DB_PASSWORD"
)

// BackendConfig selects and configures the chat transport.
type BackendConfig struct {
	Mode           string `json:"mode"` // "http" or "mock"
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`

	// MockFallback answers from the local mock when the backend is
	// unreachable. Only meaningful in http mode.
	MockFallback bool `json:"mock_fallback"`
}

// Timeout returns the per-request timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// DatabaseConfig points at a saved connection profile used to run the
// generated SQL. An empty profile disables execution.
type DatabaseConfig struct {
	Profile string `json:"profile,omitempty"`

	// Password overrides the profile's stored password.
	Password string `json:"-"`
}

// AppConfig is the top-level config file structure (~/.asksql/config.json).
type AppConfig struct {
	Backend  BackendConfig  `json:"backend"`
	Database DatabaseConfig `json:"database"`
}

// DefaultBackendConfig returns sensible defaults.
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Mode:           ModeHTTP,
		BaseURL:        "http://localhost:8080",
		TimeoutSeconds: 30,
		MockFallback:   true,
	}
}

// Dir returns ~/.asksql.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".asksql"), nil
}

// LoadAppConfig reads ~/.asksql/config.json; returns defaults if not found.
func LoadAppConfig() (*AppConfig, error) {
	dir, err := Dir()
	if err != nil {
		cfg := defaultAppConfig()
		if err := cfg.applyEnv(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadAppConfigFrom(dir)
}

// LoadAppConfigFrom reads config.json from dir, then applies .env and
// environment overrides.
func LoadAppConfigFrom(dir string) (*AppConfig, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfg, err := ReadAppConfig(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadAppConfig reads config.json from dir without environment
// overrides, so it can be edited and saved back. Missing files give
// defaults.
func ReadAppConfig(dir string) (*AppConfig, error) {
	cfg := defaultAppConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets env vars override file config.
func (c *AppConfig) applyEnv() error {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv(EnvMode); v != "" {
		c.Backend.Mode = strings.ToLower(v)
	}
	if v := os.Getenv(EnvMockFallback); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMockFallback, err)
		}
		c.Backend.MockFallback = b
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Backend.TimeoutSeconds = n
	}
	if v := os.Getenv(EnvDBProfile); v != "" {
		c.Database.Profile = v
	}
	if v := os.Getenv(EnvDBPassword); v != "" {
		c.Database.Password = v
	}
	return nil
}

// Validate checks the backend section.
func (c *AppConfig) Validate() error {
	switch c.Backend.Mode {
	case ModeHTTP:
		if c.Backend.BaseURL == "" {
			return fmt.Errorf("backend base_url is required in %s mode", ModeHTTP)
		}
	case ModeMock:
	default:
		return fmt.Errorf("unknown backend mode %q. Supported: %s, %s", c.Backend.Mode, ModeHTTP, ModeMock)
	}
	return nil
}

// SaveAppConfig writes the config to dir/config.json.
func SaveAppConfig(dir string, cfg *AppConfig) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0600)
}

func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Backend: DefaultBackendConfig(),
	}
}
