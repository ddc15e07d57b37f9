package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citysmiles/dental-admin/pkg/errors"
)

// inDir runs the test from an empty directory so no stray config.yml is read.
func inDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfigRequiresConnectionParameters(t *testing.T) {
	inDir(t)
	t.Setenv("CLINIC_REMOTE_ENDPOINT", "")
	os.Unsetenv("CLINIC_REMOTE_ENDPOINT")
	t.Setenv("CLINIC_REMOTE_ACCESS_KEY", "secret")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrConfig))
}

func TestLoadConfigRejectsBlankParameters(t *testing.T) {
	inDir(t)
	t.Setenv("CLINIC_REMOTE_ENDPOINT", "postgres://db.internal:5432/clinic")
	t.Setenv("CLINIC_REMOTE_ACCESS_KEY", "  ")

	_, err := LoadConfig()
	assert.True(t, errors.HasCode(err, errors.ErrConfig))
}

func TestLoadConfigDefaults(t *testing.T) {
	inDir(t)
	t.Setenv("CLINIC_REMOTE_ENDPOINT", "postgres://db.internal:5432/clinic")
	t.Setenv("CLINIC_REMOTE_ACCESS_KEY", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, SourcePostgres, cfg.Realtime.Source)
	assert.Equal(t, 5*time.Minute, cfg.Lookup.TTL)
	assert.False(t, cfg.Forms.CompensatePrescriptions)

	dsn, err := cfg.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "secret@db.internal")
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	dir := inDir(t)
	yml := []byte(`
server:
  port: 9000
realtime:
  source: redis
forms:
  compensate_prescriptions: true
lookup:
  ttl: 30s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), yml, 0o600))
	t.Setenv("CLINIC_REMOTE_ENDPOINT", "postgres://db.internal:5432/clinic")
	t.Setenv("CLINIC_REMOTE_ACCESS_KEY", "secret")
	t.Setenv("CLINIC_SERVER_PORT", "9100")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, SourceRedis, cfg.Realtime.Source)
	assert.True(t, cfg.Forms.CompensatePrescriptions)
	assert.Equal(t, 30*time.Second, cfg.Lookup.TTL)
}

func TestValidateRealtimeSource(t *testing.T) {
	cfg := Config{
		Remote:   RemoteConfig{Endpoint: "postgres://x", AccessKey: "k"},
		Server:   ServerConfig{Port: 1},
		Lookup:   LookupConfig{TTL: time.Second},
		Realtime: RealtimeConfig{Source: "kafka"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "realtime.source")
}
