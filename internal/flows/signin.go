package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/aonyx-labs/accountd/session"
	"github.com/aonyx-labs/accountd/token"
)

// SignInResult is the flow-local sign-in response shape.
type SignInResult struct {
	AccessToken  string
	RefreshToken string
}

// SignInUser is the flow-local credential record loaded for a sign-in
// attempt. SignInAttemptedAt is nil when the failure state is clear.
type SignInUser struct {
	ID                uuid.UUID
	Email             string
	PasswordHash      string
	Active            bool
	Permission        session.Permission
	SignInAttemptedAt *time.Time
	SignInFailures    int
}

// SignInMetrics carries metric IDs needed by the sign-in flow.
type SignInMetrics struct {
	Success     int
	Failure     int
	RateLimited int
	Lockout     int
}

// SignInEvents carries audit event names used by the sign-in flow.
type SignInEvents struct {
	Success     string
	Failure     string
	RateLimited string
	Lockout     string
}

// SignInErrors carries host-level sentinel errors used by the sign-in flow.
// RateLimitedSentinel identifies a limiter budget rejection in errors coming
// back from CheckRate and IncrementRate; limiter errors that do not match it,
// such as cache connectivity failures, pass through unchanged.
type SignInErrors struct {
	EngineNotReady      error
	InvalidCredentials  error
	RateLimited         error
	RateLimitedSentinel error
}

// SignInDeps captures sign-in dependencies.
type SignInDeps struct {
	AttemptWindow    time.Duration
	FailureThreshold int

	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string

	CheckRate     func(context.Context, string, string) error
	IncrementRate func(context.Context, string, string) error
	ResetRate     func(context.Context, string, string) error

	UserByEmail        func(context.Context, string) (*SignInUser, error)
	VerifyPassword     func(string, string) (bool, error)
	UpdateFailureState func(context.Context, uuid.UUID, time.Time, int) error
	ClearFailureState  func(context.Context, uuid.UUID) error
	SetActive          func(context.Context, uuid.UUID, bool) error
	SetLastSignIn      func(context.Context, uuid.UUID, time.Time) error

	IssuePair      func(uuid.UUID, time.Time) (*token.Pair, error)
	RegisterTokens func(context.Context, uuid.UUID, *token.Pair, session.Permission) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics SignInMetrics
	Events  SignInEvents
	Errors  SignInErrors
}

// RunSignIn executes the credential check and failure accounting state
// machine, then issues and registers a token pair on success.
//
// Every rejection that involves an existing credential row — wrong password
// or an inactive account — records a failure in the window before the
// uniform invalid-credentials error is returned, so callers cannot tell the
// two apart.
func RunSignIn(ctx context.Context, email, password string, deps SignInDeps) (*SignInResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.UserByEmail == nil ||
		deps.VerifyPassword == nil ||
		deps.UpdateFailureState == nil ||
		deps.ClearFailureState == nil ||
		deps.SetActive == nil ||
		deps.SetLastSignIn == nil ||
		deps.IssuePair == nil ||
		deps.RegisterTokens == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	if deps.CheckRate != nil {
		if err := deps.CheckRate(ctx, email, ip); err != nil {
			if !isRateLimitedError(err, deps) {
				return nil, err
			}
			deps.MetricInc(deps.Metrics.RateLimited)
			deps.EmitAudit(ctx, deps.Events.RateLimited, false, "", deps.Errors.RateLimited, func() map[string]string {
				return map[string]string{"email": email}
			})
			return nil, deps.Errors.RateLimited
		}
	}

	user, err := deps.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// No credential row: nothing to count failures against.
		if err := incrementSignInRate(ctx, email, ip, deps); err != nil {
			return nil, err
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"email": email, "reason": "user_not_found"}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	ok, err := deps.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, err
	}

	if !ok || !user.Active {
		reason := "password_mismatch"
		if ok {
			reason = "account_inactive"
		}
		if err := recordSignInFailure(ctx, user, deps.Now(), deps); err != nil {
			return nil, err
		}
		if err := incrementSignInRate(ctx, email, ip, deps); err != nil {
			return nil, err
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, user.ID.String(), deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"email": email, "reason": reason}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	now := deps.Now()

	if err := deps.ClearFailureState(ctx, user.ID); err != nil {
		return nil, err
	}
	if err := deps.SetLastSignIn(ctx, user.ID, now); err != nil {
		return nil, err
	}

	pair, err := deps.IssuePair(user.ID, now)
	if err != nil {
		return nil, err
	}
	if err := deps.RegisterTokens(ctx, user.ID, pair, user.Permission); err != nil {
		return nil, err
	}

	if deps.ResetRate != nil {
		if err := deps.ResetRate(ctx, email, ip); err != nil {
			return nil, err
		}
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, user.ID.String(), nil, func() map[string]string {
		return map[string]string{"email": email}
	})

	return &SignInResult{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
	}, nil
}

// recordSignInFailure advances the per-user failure window. A failure
// landing inside the open window increments the count and keeps the window
// anchor; a failure outside it starts a new window at count one. Reaching
// the threshold deactivates the account.
func recordSignInFailure(ctx context.Context, user *SignInUser, now time.Time, deps SignInDeps) error {
	windowStart := now
	failures := 1
	if user.SignInAttemptedAt != nil && now.Sub(*user.SignInAttemptedAt) <= deps.AttemptWindow {
		windowStart = *user.SignInAttemptedAt
		failures = user.SignInFailures + 1
	}

	if err := deps.UpdateFailureState(ctx, user.ID, windowStart, failures); err != nil {
		return err
	}

	if failures >= deps.FailureThreshold {
		if err := deps.SetActive(ctx, user.ID, false); err != nil {
			return err
		}
		deps.MetricInc(deps.Metrics.Lockout)
		deps.EmitAudit(ctx, deps.Events.Lockout, false, user.ID.String(), deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"failures": strconv.Itoa(failures)}
		})
	}

	return nil
}

func incrementSignInRate(ctx context.Context, email, ip string, deps SignInDeps) error {
	if deps.IncrementRate == nil {
		return nil
	}
	if err := deps.IncrementRate(ctx, email, ip); err != nil {
		if !isRateLimitedError(err, deps) {
			return err
		}
		deps.MetricInc(deps.Metrics.RateLimited)
		deps.EmitAudit(ctx, deps.Events.RateLimited, false, "", deps.Errors.RateLimited, func() map[string]string {
			return map[string]string{"email": email}
		})
		return deps.Errors.RateLimited
	}
	return nil
}

// isRateLimitedError reports whether a limiter error is a budget rejection
// rather than a transport failure. Without a configured sentinel every
// limiter error is treated as a rejection.
func isRateLimitedError(err error, deps SignInDeps) bool {
	if deps.Errors.RateLimitedSentinel == nil {
		return true
	}
	return errors.Is(err, deps.Errors.RateLimitedSentinel)
}
