package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLoginServer_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadLoginServer(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultLoginServer(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadLoginServer_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loginserver.yaml")
	data := `
port: 10000
realm_key: "secret-key"
log_level: debug
user_ttl: 45
cipher:
  transport_key: "0123456789abcdef"
  sbox_file: /etc/longgate/sbox.bin
database:
  host: db.internal
realms:
  - name: Aurora
    production: true
  - name: Test
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadLoginServer(path)
	require.NoError(t, err)

	assert.Equal(t, 10000, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.BindAddress, "untouched keys keep defaults")
	assert.Equal(t, "secret-key", cfg.RealmKey)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, 45*time.Second, cfg.UserTTLDuration())
	assert.Equal(t, "/etc/longgate/sbox.bin", cfg.Cipher.SBoxFile)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	require.Len(t, cfg.Realms, 2)

	entry, ok := cfg.AllowedRealm("aurora")
	require.True(t, ok)
	assert.True(t, entry.Production)
	_, ok = cfg.AllowedRealm("Unknown")
	assert.False(t, ok)
}

func TestLoadLoginServer_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1, 2"), 0o600))

	_, err := LoadLoginServer(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*LoginServer)
	}{
		{"empty transport key", func(c *LoginServer) { c.Cipher.TransportKey = "" }},
		{"transport key too long", func(c *LoginServer) { c.Cipher.TransportKey = "0123456789abcdefX" }},
		{"empty realm key", func(c *LoginServer) { c.RealmKey = "" }},
		{"zero ttl", func(c *LoginServer) { c.UserTTL = 0 }},
		{"duplicate realm", func(c *LoginServer) { c.Realms = []RealmEntry{{Name: "A"}, {Name: "a"}} }},
		{"unnamed realm", func(c *LoginServer) { c.Realms = []RealmEntry{{Name: ""}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLoginServer()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestAllowedRealm_EmptyListAllowsAll(t *testing.T) {
	cfg := DefaultLoginServer()
	entry, ok := cfg.AllowedRealm("Anything")
	assert.True(t, ok)
	assert.Equal(t, "Anything", entry.Name)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:1/d?sslmode=disable", d.DSN())
}
