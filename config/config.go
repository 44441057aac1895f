// Package config defines the application configuration structures.
//
// Separated from cmd so transport, db, ssh and tui can depend on config
// without importing Cobra.
package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config holds the resolved settings of the database the generated SQL
// runs against.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	SSH SSHConfig
}

// SSHConfig holds SSH tunnel settings.
type SSHConfig struct {
	Enabled       bool
	Host          string
	Port          int
	User          string
	KeyPath       string
	KeyPassphrase string
}

// DSN builds a pgx-compatible connection string.
// When the SSH tunnel is active, the caller overrides Host/Port with the
// local tunnel endpoint first.
func (c Config) DSN() string {
	parts := []string{
		"host=" + c.Host,
		"port=" + strconv.Itoa(c.Port),
		"user=" + c.User,
		"dbname=" + c.Database,
	}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	if c.SSLMode != "" {
		parts = append(parts, "sslmode="+c.SSLMode)
	}
	return strings.Join(parts, " ")
}

// Target is user@host:port/db for status lines.
func (c Config) Target() string {
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}
