package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("PORT", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_KEY", "")
	t.Setenv("GOOGLE_CLIENT_ID", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "peripatos.db", cfg.DatabaseURL)
	assert.Equal(t, devSessionKey, cfg.SessionKey)
	assert.False(t, cfg.GoogleEnabled())
	assert.Len(t, cfg.Warnings, 2)
}

func TestLoad_EnvFile(t *testing.T) {
	// godotenv never overrides variables that already exist, even empty ones.
	for _, k := range []string{"PORT", "SESSION_KEY", "DATABASE_DRIVER"} {
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("PORT=9090\nSESSION_KEY=abc\nDATABASE_DRIVER=memory\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("SESSION_KEY")
		os.Unsetenv("DATABASE_DRIVER")
	})

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "abc", cfg.SessionKey)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Empty(t, cfg.Warnings)
}

func TestLoad_Rejects(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("DATABASE_DRIVER", "mongo")
		_, err := Load(missing)
		assert.Error(t, err)
	})

	t.Run("production without session key", func(t *testing.T) {
		t.Setenv("DATABASE_DRIVER", "memory")
		t.Setenv("APP_ENV", "production")
		t.Setenv("SESSION_KEY", "")
		_, err := Load(missing)
		assert.Error(t, err)
	})
}
