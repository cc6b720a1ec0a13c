// Package app initializes and runs the accountd server: it opens the
// Postgres pool and the Redis client, assembles the engine, and serves the
// HTTP API until the process is told to stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	accountd "github.com/aonyx-labs/accountd"
	"github.com/aonyx-labs/accountd/internal/config"
	"github.com/aonyx-labs/accountd/internal/httpapi"
	"github.com/aonyx-labs/accountd/stores/postgres"
)

const shutdownGrace = 10 * time.Second

type App struct {
	cfg    *config.Config
	log    *slog.Logger
	pool   *pgxpool.Pool
	rdb    *redis.Client
	engine *accountd.Engine
	server *http.Server
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	engineCfg := accountd.Config{
		Password: accountd.PasswordConfig{
			Pepper:      cfg.PasswordPepper,
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Token: accountd.TokenConfig{
			Secret:     cfg.TokenSecret,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		},
		Lockout: accountd.LockoutConfig{
			AttemptWindow:    cfg.LockoutWindow,
			FailureThreshold: cfg.LockoutThreshold,
		},
		Session: accountd.SessionConfig{RedisPrefix: "tk:"},
		RateLimit: accountd.RateLimitConfig{
			Enabled:          cfg.RateLimitEnabled,
			EnableIPThrottle: true,
			MaxAttempts:      cfg.RateLimitMaxAttempts,
			Cooldown:         cfg.RateLimitCooldown,
		},
		Audit: accountd.AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: accountd.MetricsConfig{Enabled: true},
	}

	engine, err := accountd.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserStore(postgres.NewStore(pool)).
		WithAuditSink(accountd.NewJSONWriterSink(os.Stderr)).
		Build()
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("engine build: %w", err)
	}

	api := httpapi.NewServer(engine, log, httpapi.Config{
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})

	return &App{
		cfg:    cfg,
		log:    log,
		pool:   pool,
		rdb:    rdb,
		engine: engine,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           api.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully and releases every connection.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", slog.String("addr", a.cfg.ListenAddr))
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		a.close()
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err := a.server.Shutdown(shutdownCtx)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}

	a.close()
	return err
}

func (a *App) close() {
	a.engine.Close()
	a.pool.Close()
	if cerr := a.rdb.Close(); cerr != nil {
		a.log.Warn("redis close", slog.String("error", cerr.Error()))
	}
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
