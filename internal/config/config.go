package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	Port          int    `env:"PORT" envDefault:"8080"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	RedisURL      string `env:"REDIS_URL,required"`
	SessionSecret string `env:"SESSION_SECRET" envDefault:"dev-secret-change-me"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"false"`
	StaticDir     string `env:"STATIC_DIR" envDefault:"static"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@localhost"`

	// AccessCodeEmail additionally mails login codes; the code is always
	// returned to the requester as well.
	AccessCodeEmail    bool   `env:"ACCESS_CODE_EMAIL" envDefault:"false"`
	ContactNotifyEmail string `env:"CONTACT_NOTIFY_EMAIL"`

	MinioEndpoint  string `env:"MINIO_ENDPOINT"`
	MinioAccessKey string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `env:"MINIO_SECRET_KEY"`
	MinioBucket    string `env:"MINIO_BUCKET" envDefault:"site-media"`
	MinioUseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`

	ContentCacheTTLSeconds int  `env:"CONTENT_CACHE_TTL_SECONDS" envDefault:"300"`
	RenewalJobEnabled      bool `env:"RENEWAL_JOB_ENABLED" envDefault:"true"`
	AdminRateLimitPerMin   int  `env:"ADMIN_RATE_LIMIT_PER_MIN" envDefault:"300"`
}

func (c *Config) ContentCacheTTL() time.Duration {
	return time.Duration(c.ContentCacheTTLSeconds) * time.Second
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MediaOrigin is the scheme and host presigned media URLs point at.
func (c *Config) MediaOrigin() string {
	if !c.StorageEnabled() {
		return ""
	}
	scheme := "http://"
	if c.MinioUseSSL {
		scheme = "https://"
	}
	return scheme + c.MinioEndpoint
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func (c *Config) StorageEnabled() bool {
	return c.MinioEndpoint != ""
}

func (c *Config) Validate(isProduction bool) error {
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be a valid port, got %d", c.SMTPPort)
	}
	if c.AccessCodeEmail && !c.MailEnabled() {
		return fmt.Errorf("ACCESS_CODE_EMAIL requires SMTP_HOST to be set")
	}

	if isProduction {
		if err := validateSecret("SESSION_SECRET", c.SessionSecret); err != nil {
			return err
		}
		if !c.SecureCookies {
			log.Warn().Msg("SECURE_COOKIES is false in production: session cookies will be sent over plain HTTP")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if !c.StorageEnabled() {
			log.Warn().Msg("MINIO_ENDPOINT is empty in production: admin image uploads are disabled")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

// Load reads an optional .env file and then parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
