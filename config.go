package identity

import (
	"os"
	"time"
)

// Config carries every knob the lifecycle components need. It is passed
// explicitly into constructors; business logic never reads the process
// environment.
type Config struct {
	// SigningKey is the HMAC key for all minted tokens. Required.
	SigningKey string
	Issuer     string
	Audience   []string

	// Per-purpose token validity windows. Verification links live longer
	// than the recovery-style tokens by design.
	SessionTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	EmailChangeTTL  time.Duration

	// BaseURL is the public address links in outbound mail point at.
	BaseURL string
}

const (
	defaultSessionTTL      = 72 * time.Hour
	defaultVerificationTTL = 24 * time.Hour
	defaultResetTTL        = time.Hour
	defaultEmailChangeTTL  = time.Hour
)

// WithDefaults fills the zero-valued TTLs.
func (c Config) WithDefaults() Config {
	if c.SessionTTL == 0 {
		c.SessionTTL = defaultSessionTTL
	}
	if c.VerificationTTL == 0 {
		c.VerificationTTL = defaultVerificationTTL
	}
	if c.ResetTTL == 0 {
		c.ResetTTL = defaultResetTTL
	}
	if c.EmailChangeTTL == 0 {
		c.EmailChangeTTL = defaultEmailChangeTTL
	}
	return c
}

// ConfigFromEnv builds a Config from the process environment. This is the
// composition edge: call it from main, hand the struct down.
func ConfigFromEnv() Config {
	cfg := Config{
		SigningKey: os.Getenv("IDENTITY_SIGNING_KEY"),
		Issuer:     os.Getenv("IDENTITY_ISSUER"),
		BaseURL:    os.Getenv("IDENTITY_BASE_URL"),
	}

	if aud := os.Getenv("IDENTITY_AUDIENCE"); aud != "" {
		cfg.Audience = []string{aud}
	}

	if ttl, err := time.ParseDuration(os.Getenv("IDENTITY_SESSION_TTL")); err == nil {
		cfg.SessionTTL = ttl
	}
	if ttl, err := time.ParseDuration(os.Getenv("IDENTITY_VERIFICATION_TTL")); err == nil {
		cfg.VerificationTTL = ttl
	}
	if ttl, err := time.ParseDuration(os.Getenv("IDENTITY_RESET_TTL")); err == nil {
		cfg.ResetTTL = ttl
	}
	if ttl, err := time.ParseDuration(os.Getenv("IDENTITY_EMAIL_CHANGE_TTL")); err == nil {
		cfg.EmailChangeTTL = ttl
	}

	return cfg.WithDefaults()
}
