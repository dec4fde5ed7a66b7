package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("ContentCacheTTL converts seconds to duration", func(t *testing.T) {
		cfg := &Config{ContentCacheTTLSeconds: 300}
		assert.Equal(t, 300*time.Second, cfg.ContentCacheTTL())
	})

	t.Run("MediaOrigin follows the storage endpoint", func(t *testing.T) {
		assert.Empty(t, (&Config{}).MediaOrigin())
		assert.Equal(t, "https://media.example.com", (&Config{MinioEndpoint: "media.example.com", MinioUseSSL: true}).MediaOrigin())
		assert.Equal(t, "http://localhost:9000", (&Config{MinioEndpoint: "localhost:9000"}).MediaOrigin())
	})

	t.Run("IsProduction", func(t *testing.T) {
		assert.True(t, (&Config{AppEnv: "production"}).IsProduction())
		assert.False(t, (&Config{AppEnv: "development"}).IsProduction())
	})

	t.Run("MailEnabled depends on SMTP host", func(t *testing.T) {
		assert.False(t, (&Config{}).MailEnabled())
		assert.True(t, (&Config{SMTPHost: "smtp.example.com"}).MailEnabled())
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts defaults outside production", func(t *testing.T) {
		cfg := &Config{SMTPPort: 587, SessionSecret: "dev-secret-change-me"}
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("rejects short secret in production", func(t *testing.T) {
		cfg := &Config{SMTPPort: 587, SessionSecret: "short"}
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("accepts strong secret in production", func(t *testing.T) {
		cfg := &Config{
			SMTPPort:      587,
			SessionSecret: strings.Repeat("x", 40),
			SecureCookies: true,
			RedisURL:      "rediss://cache:6380",
			MinioEndpoint: "minio:9000",
		}
		assert.NoError(t, cfg.Validate(true))
	})

	t.Run("access code email requires smtp", func(t *testing.T) {
		cfg := &Config{SMTPPort: 587, AccessCodeEmail: true}
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects invalid smtp port", func(t *testing.T) {
		cfg := &Config{SMTPPort: 0}
		assert.Error(t, cfg.Validate(false))
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":              os.Getenv("PORT"),
		"DATABASE_URL":      os.Getenv("DATABASE_URL"),
		"REDIS_URL":         os.Getenv("REDIS_URL"),
		"LOG_LEVEL":         os.Getenv("LOG_LEVEL"),
		"ACCESS_CODE_EMAIL": os.Getenv("ACCESS_CODE_EMAIL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("ACCESS_CODE_EMAIL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 587, cfg.SMTPPort)
		assert.False(t, cfg.AccessCodeEmail)
		assert.True(t, cfg.RenewalJobEnabled)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("ACCESS_CODE_EMAIL", "true")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.True(t, cfg.AccessCodeEmail)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
