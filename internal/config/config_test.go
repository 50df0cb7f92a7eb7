package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_ENV", "nonexistent")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "release", cfg.Mode)
	assert.Equal(t, "ws://localhost:4000/ws", cfg.SignalURL)
	assert.Equal(t, "guest", cfg.DisplayName)
	assert.False(t, cfg.Owner)
	assert.Equal(t, ":8080", cfg.StatusAddr)
	assert.Equal(t, "./recordings", cfg.RecordDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 32, cfg.SendBuffer)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := []byte("mode: debug\nsignal_url: wss://meet.example.com/ws\nroom: standup\nowner: true\nlog_level: debug\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Mode)
	assert.Equal(t, "wss://meet.example.com/ws", cfg.SignalURL)
	assert.Equal(t, "standup", cfg.Room)
	assert.True(t, cfg.Owner)
	assert.Equal(t, "debug", cfg.LogLevel)
	// unset keys fall back to defaults
	assert.Equal(t, ":8080", cfg.StatusAddr)
	assert.Equal(t, 32, cfg.SendBuffer)
}
