package accountd

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/aonyx-labs/accountd/internal/rate"
	"github.com/aonyx-labs/accountd/password"
	"github.com/aonyx-labs/accountd/session"
	"github.com/aonyx-labs/accountd/token"
)

// Builder assembles an [Engine]. A Builder is single-use: Build succeeds at
// most once.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	users     UserStore
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with the default configuration. The pepper
// and token secret have no defaults and must be supplied via WithConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, constructs every component, and
// returns the ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hasher, err := password.NewHasher(password.Config{
		Pepper:      cfg.Password.Pepper,
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(token.Config{
		Secret:     []byte(cfg.Token.Secret),
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		users:    b.users,
		hasher:   hasher,
		codec:    codec,
		sessions: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:  NewMetrics(cfg.Metrics),
	}

	if cfg.RateLimit.Enabled {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.RateLimit.EnableIPThrottle,
			MaxAttempts:      cfg.RateLimit.MaxAttempts,
			Cooldown:         cfg.RateLimit.Cooldown,
		})
	}

	b.built = true

	return engine, nil
}
