package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig_Defaults checks the service is runnable with no config
// file at all.
func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "data/hivecore.db", cfg.Database.Path)
	assert.Equal(t, "default", cfg.Fleet.DefaultSchedule)
	assert.Equal(t, 5, cfg.Chat.Workers)
	assert.Equal(t, "I'm sorry. Can  you repeat that?", cfg.Chat.FallbackLine)
	assert.True(t, cfg.Chat.EnableGlobals)
	assert.True(t, cfg.Chat.LogNotify)
	assert.False(t, cfg.Chat.LogRequests)
	assert.Equal(t, "info", cfg.Log.Level)
}

// TestLoadConfig_FileOverrides checks file values take over defaults.
func TestLoadConfig_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `database:
  path: /tmp/test.db
chat:
  workers: 9
  enable_globals: false
log:
  level: debug
  pretty: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 9, cfg.Chat.Workers)
	assert.False(t, cfg.Chat.EnableGlobals)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
	// Untouched sections keep their defaults.
	assert.Equal(t, "default", cfg.Fleet.DefaultSchedule)
}
