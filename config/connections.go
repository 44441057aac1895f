// connections.go manages saved database connection profiles.
//
// Profiles are stored in ~/.asksql/connections.json. The chat front end
// only needs one of them (AppConfig.Database.Profile) to run the SQL the
// assistant generates.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Connection is a named, saveable database connection profile.
type Connection struct {
	Name     string   `json:"name"`
	Host     string   `json:"host"`
	Port     string   `json:"port"`
	User     string   `json:"user"`
	Password string   `json:"password"`
	Database string   `json:"database"`
	SSLMode  string   `json:"ssl_mode"`
	SSH      SSHEntry `json:"ssh,omitempty"`
}

// SSHEntry holds SSH tunnel settings for a saved connection.
type SSHEntry struct {
	Enabled       bool   `json:"enabled,omitempty"`
	Host          string `json:"host,omitempty"`
	Port          string `json:"port,omitempty"`
	User          string `json:"user,omitempty"`
	KeyPath       string `json:"key_path,omitempty"`
	KeyPassphrase string `json:"key_passphrase,omitempty"`
}

// ToConfig converts the profile's string ports into a resolved Config.
func (c Connection) ToConfig() (Config, error) {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return Config{}, fmt.Errorf("connection %q: invalid port %q", c.Name, c.Port)
	}
	cfg := Config{
		Host:     c.Host,
		Port:     port,
		User:     c.User,
		Password: c.Password,
		Database: c.Database,
		SSLMode:  c.SSLMode,
	}
	if c.SSH.Enabled {
		sshPort := 22
		if c.SSH.Port != "" {
			sshPort, err = strconv.Atoi(c.SSH.Port)
			if err != nil {
				return Config{}, fmt.Errorf("connection %q: invalid ssh port %q", c.Name, c.SSH.Port)
			}
		}
		cfg.SSH = SSHConfig{
			Enabled:       true,
			Host:          c.SSH.Host,
			Port:          sshPort,
			User:          c.SSH.User,
			KeyPath:       c.SSH.KeyPath,
			KeyPassphrase: c.SSH.KeyPassphrase,
		}
	}
	return cfg, nil
}

// ConnectionStore manages saved connections on disk.
type ConnectionStore struct {
	path        string
	Connections []Connection `json:"connections"`
}

// NewConnectionStore creates a store, loading from dir/connections.json.
func NewConnectionStore(dir string) (*ConnectionStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	store := &ConnectionStore{
		path: filepath.Join(dir, "connections.json"),
	}

	data, err := os.ReadFile(store.path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, store); err != nil {
		return nil, fmt.Errorf("parse connections: %w", err)
	}

	return store, nil
}

// Save writes all connections to disk.
func (s *ConnectionStore) Save() error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// Add adds or updates a connection by name.
func (s *ConnectionStore) Add(conn Connection) {
	for i, c := range s.Connections {
		if c.Name == conn.Name {
			s.Connections[i] = conn
			return
		}
	}
	s.Connections = append(s.Connections, conn)
}

// Get retrieves a connection by name.
func (s *ConnectionStore) Get(name string) (Connection, bool) {
	for _, c := range s.Connections {
		if c.Name == name {
			return c, true
		}
	}
	return Connection{}, false
}

// Resolve looks up the configured profile. ok is false when no profile
// is configured.
func (s *ConnectionStore) Resolve(db DatabaseConfig) (cfg Config, ok bool, err error) {
	if db.Profile == "" {
		return Config{}, false, nil
	}
	conn, found := s.Get(db.Profile)
	if !found {
		return Config{}, false, fmt.Errorf("connection profile %q not found", db.Profile)
	}
	cfg, err = conn.ToConfig()
	if err != nil {
		return Config{}, false, err
	}
	if db.Password != "" {
		cfg.Password = db.Password
	}
	return cfg, true, nil
}
