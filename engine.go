package accountd

import (
	"context"
	"errors"
	"fmt"

	"github.com/aonyx-labs/accountd/internal/rate"
	"github.com/aonyx-labs/accountd/password"
	"github.com/aonyx-labs/accountd/session"
	"github.com/aonyx-labs/accountd/token"
)

// Engine is the account subsystem facade. All methods are safe for
// concurrent use after [Builder.Build].
type Engine struct {
	config      Config
	users       UserStore
	hasher      *password.Hasher
	codec       *token.Codec
	sessions    *session.Store
	rateLimiter *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics
}

// Close flushes and stops the audit dispatcher. The Engine must not be
// used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Resolve maps a presented token to its live session content. A token whose
// cache entry is missing or expired resolves to (nil, nil); the caller
// decides whether that is a 401. The token signature is NOT checked here —
// possession of a token whose fingerprint is live in the cache is the
// credential.
func (e *Engine) Resolve(ctx context.Context, tok string) (*TokenContent, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	content, err := e.sessions.Resolve(ctx, tok)
	if err != nil {
		if errors.Is(err, session.ErrCorruptEntry) {
			e.metricInc(MetricResolveCorrupt)
		}
		return nil, err
	}
	if content == nil {
		e.metricInc(MetricResolveMiss)
		return nil, nil
	}

	e.metricInc(MetricResolveHit)
	return content, nil
}

// Revoke drops the session entry for a token, ending that session
// immediately. Unknown tokens are a no-op.
func (e *Engine) Revoke(ctx context.Context, tok string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}
	return e.sessions.Revoke(ctx, tok)
}

// SignInAttempts exposes the current rate-limit counter for an email, or
// zero when rate limiting is disabled.
func (e *Engine) SignInAttempts(ctx context.Context, email string) (int, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	if e.rateLimiter == nil {
		return 0, nil
	}

	attempts, err := e.rateLimiter.Attempts(ctx, email)
	if err != nil {
		return 0, fmt.Errorf("sign-in attempts: %w", err)
	}
	return attempts, nil
}
