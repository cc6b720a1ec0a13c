package accountd

import (
	"errors"
	"time"
)

// PasswordConfig carries Argon2id cost parameters and the server pepper.
type PasswordConfig struct {
	Pepper      string
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// TokenConfig carries the HMAC secret and the two token lifetimes.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// LockoutConfig tunes the sign-in failure window.
type LockoutConfig struct {
	// AttemptWindow is how long a failure window stays open after its
	// first failure.
	AttemptWindow time.Duration
	// FailureThreshold is the in-window failure count that deactivates the
	// account.
	FailureThreshold int
}

// SessionConfig tunes the Redis session cache.
type SessionConfig struct {
	RedisPrefix string
}

// RateLimitConfig tunes the optional sign-in attempt throttle.
type RateLimitConfig struct {
	Enabled          bool
	EnableIPThrottle bool
	MaxAttempts      int
	Cooldown         time.Duration
}

// AuditConfig tunes the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is full.
	// Dropped counts are visible via Engine.AuditDropped.
	DropIfFull bool
}

// MetricsConfig enables the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// Config is the full engine configuration. Construct it once, pass it to
// [Builder.WithConfig], and treat it as immutable afterwards.
type Config struct {
	Password  PasswordConfig
	Token     TokenConfig
	Lockout   LockoutConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Token: TokenConfig{
			AccessTTL:  5 * time.Minute,
			RefreshTTL: time.Hour,
		},
		Lockout: LockoutConfig{
			AttemptWindow:    300 * time.Second,
			FailureThreshold: 5,
		},
		Session: SessionConfig{
			RedisPrefix: "tk:",
		},
		RateLimit: RateLimitConfig{
			Enabled:          false,
			EnableIPThrottle: false,
			MaxAttempts:      10,
			Cooldown:         15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks invariants that span fields. Argon2id parameter minimums
// are enforced separately by the password package at Build time.
func (c Config) Validate() error {
	if c.Password.Pepper == "" {
		return errors.New("Password Pepper must be set")
	}
	if c.Token.Secret == "" {
		return errors.New("Token Secret must be set")
	}
	if c.Token.AccessTTL <= 0 {
		return errors.New("Token AccessTTL must be > 0")
	}
	if c.Token.RefreshTTL/time.Second <= c.Token.AccessTTL/time.Second {
		return errors.New("Token RefreshTTL must exceed AccessTTL by at least one second")
	}
	if c.Lockout.AttemptWindow <= 0 {
		return errors.New("Lockout AttemptWindow must be > 0")
	}
	if c.Lockout.FailureThreshold < 1 {
		return errors.New("Lockout FailureThreshold must be >= 1")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("Session RedisPrefix must be set")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts < 1 {
			return errors.New("RateLimit MaxAttempts must be >= 1")
		}
		if c.RateLimit.Cooldown <= 0 {
			return errors.New("RateLimit Cooldown must be > 0")
		}
	}

	return nil
}
