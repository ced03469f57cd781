package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_MissingFileUsesDefaults(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestSettings_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlite2pg.yaml")

	want := DefaultSettings()
	want.Server.Port = 8088
	want.Tools.Timeout = 90 * time.Second
	want.Tools.Pgloader = "/opt/pgloader/bin/pgloader"
	want.Backup.Schedule = "0 3 * * *"
	want.Backup.Retain = 7
	want.Limits.MaxConcurrentJobs = 2
	require.NoError(t, want.Save(path))

	got, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	t.Setenv("SQLITE2PG_SERVER_PORT", "9000")
	t.Setenv("SQLITE2PG_TOOLS_TIMEOUT", "30s")

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, 9000, s.Server.Port)
	assert.Equal(t, 30*time.Second, s.Tools.Timeout)
}

func TestSettings_Validate(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	s.Server.Port = 0
	assert.ErrorContains(t, s.Validate(), "Port")

	s = DefaultSettings()
	s.Tools.Timeout = 0
	assert.ErrorContains(t, s.Validate(), "Timeout")

	s = DefaultSettings()
	s.Log.Format = "xml"
	assert.Error(t, s.Validate())
}

func TestGetSettingsPath(t *testing.T) {
	t.Setenv("SQLITE2PG_CONFIG_PATH", "/etc/sqlite2pg.yaml")
	assert.Equal(t, "/etc/sqlite2pg.yaml", GetSettingsPath())

	t.Setenv("SQLITE2PG_CONFIG_PATH", "")
	assert.Equal(t, "sqlite2pg.yaml", GetSettingsPath())
}
