package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/longgate/internal/constants"
)

// LoginServer holds all configuration for the login server.
type LoginServer struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Realm listener
	RealmListenHost string `yaml:"realm_listen_host"`
	RealmListenPort int    `yaml:"realm_listen_port"`
	RealmKey        string `yaml:"realm_key"` // общий Blowfish ключ канала реалмов

	// Logging
	LogLevel string `yaml:"log_level"`

	// Seconds a pending login waits for the realm answer
	UserTTL int `yaml:"user_ttl"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	// Client transport cipher
	Cipher CipherConfig `yaml:"cipher"`

	// Allow-list of realms; empty = any realm knowing the realm key
	Realms []RealmEntry `yaml:"realms"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// CipherConfig configures the client transport cipher.
type CipherConfig struct {
	TransportKey string `yaml:"transport_key"` // 1..16 байт
	SBoxFile     string `yaml:"sbox_file"`     // пусто - таблицы RFC 2144
}

// RealmEntry is a realm allowed to connect.
type RealmEntry struct {
	Name       string `yaml:"name"`
	Production bool   `yaml:"production"`
}

// DefaultLoginServer returns LoginServer config with sensible defaults.
func DefaultLoginServer() LoginServer {
	return LoginServer{
		BindAddress:     "0.0.0.0",
		Port:            9958,
		RealmListenHost: "127.0.0.1",
		RealmListenPort: 9865,
		RealmKey:        "change-me-realm-key",
		LogLevel:        "info",
		UserTTL:         constants.DefaultUserTTLSeconds,
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "longgate",
			Password: "longgate",
			DBName:   "longgate",
			SSLMode:  "disable",
		},
		Cipher: CipherConfig{
			TransportKey: "DR654dt34trg4UI6",
		},
	}
}

// LoadLoginServer loads login server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadLoginServer(path string) (LoginServer, error) {
	cfg := DefaultLoginServer()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail at first use.
func (c LoginServer) Validate() error {
	if n := len(c.Cipher.TransportKey); n == 0 || n > 16 {
		return fmt.Errorf("cipher.transport_key must be 1..16 bytes, got %d", n)
	}
	// x/crypto/blowfish принимает ключи 1..56 байт
	if n := len(c.RealmKey); n == 0 || n > 56 {
		return fmt.Errorf("realm_key must be 1..56 bytes, got %d", n)
	}
	if c.UserTTL <= 0 {
		return fmt.Errorf("user_ttl must be positive, got %d", c.UserTTL)
	}
	seen := make(map[string]struct{}, len(c.Realms))
	for _, r := range c.Realms {
		name := strings.ToLower(r.Name)
		if name == "" {
			return fmt.Errorf("realm with empty name")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("realm %q listed twice", r.Name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// UserTTLDuration returns UserTTL as a duration.
func (c LoginServer) UserTTLDuration() time.Duration {
	return time.Duration(c.UserTTL) * time.Second
}

// SlogLevel maps log_level to slog.Level (info for unknown values).
func (c LoginServer) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AllowedRealm returns the allow-list entry for name.
// With an empty allow-list every realm is allowed and production comes from the realm itself.
func (c LoginServer) AllowedRealm(name string) (RealmEntry, bool) {
	if len(c.Realms) == 0 {
		return RealmEntry{Name: name}, true
	}
	for _, r := range c.Realms {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return RealmEntry{}, false
}
