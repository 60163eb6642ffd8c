package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, 0, cfg.EventWorkers)
	assert.Equal(t, 500*time.Millisecond, cfg.EventPollInterval)
	assert.Equal(t, 10*time.Second, cfg.ExtractionTimeout)
	assert.True(t, cfg.EnforceDocGating)
	assert.False(t, cfg.DemoMode)
	assert.Equal(t, "demo-org", cfg.DemoOrgID)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, int32(0), cfg.DBMinConns)
	assert.Equal(t, 30*time.Second, cfg.DBHealthCheckPeriod)
	assert.Equal(t, time.Hour, cfg.DBMaxConnLifetime)
	assert.Equal(t, 5*time.Second, cfg.DBConnectTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/deedflow")
	t.Setenv("EVENT_WORKERS", "3")
	t.Setenv("EVENT_POLL_INTERVAL", "2s")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("ENFORCE_DOC_GATING", "false")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("DB_MIN_CONNS", "2")
	t.Setenv("DB_HEALTH_CHECK_PERIOD", "1m")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.EventWorkers)
	assert.Equal(t, 2*time.Second, cfg.EventPollInterval)
	assert.True(t, cfg.DemoMode)
	assert.False(t, cfg.EnforceDocGating)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, int32(2), cfg.DBMinConns)
	assert.Equal(t, time.Minute, cfg.DBHealthCheckPeriod)
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("EXTRACTION_URL=http://ocr.local\nDATABASE_URL=postgres://db/deedflow\n"), 0o600))
	t.Setenv("EXTRACTION_URL", "")
	os.Unsetenv("EXTRACTION_URL")
	t.Setenv("DATABASE_URL", "")
	os.Unsetenv("DATABASE_URL")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://ocr.local", cfg.ExtractionURL)
	t.Cleanup(func() {
		os.Unsetenv("EXTRACTION_URL")
		os.Unsetenv("DATABASE_URL")
	})
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string][2]string{
		"workers not a number": {"EVENT_WORKERS", "many"},
		"zero max conns":       {"DB_MAX_CONNS", "0"},
		"min above max":        {"DB_MIN_CONNS", "50"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrNoDatabase)
		})
	}
}
