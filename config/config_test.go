package config

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("k"), 32))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MODELMUX_SECRET_KEY", testKey())

	_, err := Load(filepath.Join(t.TempDir(), "missing-means-defaults"))
	require.Error(t, err, "explicit missing file is an error")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "default", cfg.Secrets.CurrentKeyID)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
database:
  driver: postgres
  dsn: postgres://localhost/mux
secrets:
  current_key_id: k1
  keys:
    k1: `+testKey()+`
`)
	t.Setenv("MODELMUX_ADDR", ":7777")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7777", cfg.Server.Addr, "env beats file")
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "k1", cfg.Secrets.CurrentKeyID)
}

func TestLoadRequiresKeys(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9000\"\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "secrets key")
}

func TestLoadRejectsUnknownCurrentKey(t *testing.T) {
	path := writeConfig(t, `
secrets:
  current_key_id: nope
  keys:
    k1: `+testKey()+`
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "current key id")
}

func TestDecodeKeys(t *testing.T) {
	t.Setenv("MODELMUX_SECRET_KEY", testKey())
	cfg, err := Load("")
	require.NoError(t, err)

	keys, err := cfg.DecodeKeys()
	require.NoError(t, err)
	assert.Len(t, keys["default"], 32)

	cfg.Secrets.Keys["bad"] = "not-base64!!!"
	_, err = cfg.DecodeKeys()
	assert.Error(t, err)
}
