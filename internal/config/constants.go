package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 60 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const (
	RenewalJobInterval = 5 * time.Minute
	RenewalJobTimeout  = 30 * time.Second
)

// Access codes
const (
	LoginCodeLength   = 6
	LoginCodeTTL      = 10 * time.Minute
	RenewalCodeLength = 8
	RenewalCodeTTL    = 15 * time.Minute
)

// Sessions
const (
	UserSessionTTL = 24 * time.Hour
)

// Attempt limits
const (
	CodeVerifyMaxAttempts = 5
	CodeVerifyWindow      = 5 * time.Minute
	ContactMaxPerWindow   = 3
	ContactWindow         = 10 * time.Minute
)

// Uploads
const MaxUploadSize = 5 << 20

// Public API throttling, per client IP
const (
	PublicRateLimitPerMin = 120
	PublicRateLimitWindow = time.Minute
)
