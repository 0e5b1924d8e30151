package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "memory")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, DriverMemory, cfg.Database.Driver)
		assert.Equal(t, "localhost:8080", cfg.Server.Addr())
		assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
		assert.Equal(t, 15*time.Minute, cfg.Cache.SummaryTTL)
		assert.False(t, cfg.Notify.Enabled())
		assert.NotEmpty(t, cfg.Ingest.KnownBanks)
	})

	t.Run("slices are trimmed", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "memory")
		t.Setenv("NOTIFY_TO", " a@example.com , ,b@example.com")
		t.Setenv("RESEND_API_KEY", "re_test")
		t.Setenv("NOTIFY_FROM", "finova@example.com")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Notify.To)
		assert.True(t, cfg.Notify.Enabled())
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "oracle")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_DRIVER")
	})

	t.Run("gcs requires bucket", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "memory")
		t.Setenv("STORAGE_TYPE", "gcs")

		_, err := Load()
		require.Error(t, err)
	})

	t.Run("auth requires real secret", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "memory")
		t.Setenv("AUTH_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)

		t.Setenv("JWT_SECRET", "s3cret")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Auth.Enabled)
	})
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "finova", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=finova sslmode=disable", c.DSN())
}
