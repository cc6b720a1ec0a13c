package flows

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aonyx-labs/accountd/session"
	"github.com/aonyx-labs/accountd/token"
)

var (
	errNotReady        = errors.New("not ready")
	errInvalidCred     = errors.New("invalid email address or password")
	errRateLimited     = errors.New("rate limited")
	errBudgetExceeded  = errors.New("limiter budget exceeded")
	errCacheUnreliable = errors.New("cache unavailable")
)

// signInFixture wires RunSignIn against a single mutable in-memory user
// record so the failure window state machine can be driven directly.
type signInFixture struct {
	user       *SignInUser // nil means no credential row
	now        time.Time
	registered []session.Permission
	lastSignIn []time.Time
	audits     []string
}

func newSignInFixture(user *SignInUser) *signInFixture {
	return &signInFixture{
		user: user,
		now:  time.Unix(1700000000, 0),
	}
}

func (f *signInFixture) deps() SignInDeps {
	return SignInDeps{
		AttemptWindow:    300 * time.Second,
		FailureThreshold: 3,
		Now:              func() time.Time { return f.now },
		UserByEmail: func(_ context.Context, email string) (*SignInUser, error) {
			if f.user == nil || f.user.Email != email {
				return nil, nil
			}
			copied := *f.user
			return &copied, nil
		},
		VerifyPassword: func(password, hash string) (bool, error) {
			return "phc:"+password == hash, nil
		},
		UpdateFailureState: func(_ context.Context, id uuid.UUID, at time.Time, n int) error {
			if f.user == nil || f.user.ID != id {
				return errors.New("no such user")
			}
			attempted := at
			f.user.SignInAttemptedAt = &attempted
			f.user.SignInFailures = n
			return nil
		},
		ClearFailureState: func(_ context.Context, id uuid.UUID) error {
			f.user.SignInAttemptedAt = nil
			f.user.SignInFailures = 0
			return nil
		},
		SetActive: func(_ context.Context, id uuid.UUID, active bool) error {
			f.user.Active = active
			return nil
		},
		SetLastSignIn: func(_ context.Context, id uuid.UUID, at time.Time) error {
			f.lastSignIn = append(f.lastSignIn, at)
			return nil
		},
		IssuePair: func(id uuid.UUID, now time.Time) (*token.Pair, error) {
			return &token.Pair{
				Access:     "access-" + id.String(),
				Refresh:    "refresh-" + id.String(),
				AccessTTL:  5 * time.Minute,
				RefreshTTL: time.Hour,
			}, nil
		},
		RegisterTokens: func(_ context.Context, id uuid.UUID, pair *token.Pair, p session.Permission) error {
			f.registered = append(f.registered, p)
			return nil
		},
		EmitAudit: func(_ context.Context, event string, _ bool, _ string, _ error, _ func() map[string]string) {
			f.audits = append(f.audits, event)
		},
		Events: SignInEvents{
			Success:     "sign_in_success",
			Failure:     "sign_in_failure",
			RateLimited: "sign_in_rate_limited",
			Lockout:     "account_locked",
		},
		Errors: SignInErrors{
			EngineNotReady:      errNotReady,
			InvalidCredentials:  errInvalidCred,
			RateLimited:         errRateLimited,
			RateLimitedSentinel: errBudgetExceeded,
		},
	}
}

func activeUser() *SignInUser {
	return &SignInUser{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: "phc:Az3#Za3@",
		Active:       true,
		Permission:   session.PermissionGeneral,
	}
}

func TestRunSignInSuccess(t *testing.T) {
	f := newSignInFixture(activeUser())

	result, err := RunSignIn(context.Background(), "user@example.com", "Az3#Za3@", f.deps())
	if err != nil {
		t.Fatalf("RunSignIn error: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if len(f.registered) != 1 || f.registered[0] != session.PermissionGeneral {
		t.Fatalf("expected one registration with general permission, got %v", f.registered)
	}
	if len(f.lastSignIn) != 1 || !f.lastSignIn[0].Equal(f.now) {
		t.Fatalf("expected last sign-in stamp at %v, got %v", f.now, f.lastSignIn)
	}
}

func TestRunSignInUnknownUser(t *testing.T) {
	f := newSignInFixture(nil)

	_, err := RunSignIn(context.Background(), "ghost@example.com", "Az3#Za3@", f.deps())
	if !errors.Is(err, errInvalidCred) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestRunSignInFailureWindowLocks(t *testing.T) {
	f := newSignInFixture(activeUser())
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		if _, err := RunSignIn(ctx, "user@example.com", "wrong", f.deps()); !errors.Is(err, errInvalidCred) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
		if f.user.SignInFailures != i {
			t.Fatalf("attempt %d: expected %d failures, got %d", i, i, f.user.SignInFailures)
		}
		if !f.user.Active {
			t.Fatalf("attempt %d: account locked before threshold", i)
		}
		f.now = f.now.Add(10 * time.Second)
	}

	// Third in-window failure reaches the threshold and deactivates.
	if _, err := RunSignIn(ctx, "user@example.com", "wrong", f.deps()); !errors.Is(err, errInvalidCred) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if f.user.Active {
		t.Fatal("expected account to be locked at threshold")
	}
	if f.user.SignInFailures != 3 {
		t.Fatalf("expected 3 failures, got %d", f.user.SignInFailures)
	}

	locked := false
	for _, event := range f.audits {
		if event == "account_locked" {
			locked = true
		}
	}
	if !locked {
		t.Fatal("expected account_locked audit event")
	}
}

func TestRunSignInWindowAnchorIsStable(t *testing.T) {
	f := newSignInFixture(activeUser())
	ctx := context.Background()

	if _, err := RunSignIn(ctx, "user@example.com", "wrong", f.deps()); !errors.Is(err, errInvalidCred) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	anchor := *f.user.SignInAttemptedAt

	f.now = f.now.Add(100 * time.Second)
	if _, err := RunSignIn(ctx, "user@example.com", "wrong", f.deps()); !errors.Is(err, errInvalidCred) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if !f.user.SignInAttemptedAt.Equal(anchor) {
		t.Fatal("in-window failure must not move the window anchor")
	}
}

func TestRunSignInExpiredWindowResets(t *testing.T) {
	f := newSignInFixture(activeUser())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := RunSignIn(ctx, "user@example.com", "wrong", f.deps()); !errors.Is(err, errInvalidCred) {
			t.Fatalf("expected invalid credentials, got %v", err)
		}
	}

	// Past the window: the next failure opens a fresh window at count one
	// instead of locking.
	f.now = f.now.Add(301 * time.Second)
	if _, err := RunSignIn(ctx, "user@example.com", "wrong", f.deps()); !errors.Is(err, errInvalidCred) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if f.user.SignInFailures != 1 {
		t.Fatalf("expected window reset to 1 failure, got %d", f.user.SignInFailures)
	}
	if !f.user.Active {
		t.Fatal("expected account to stay active after window reset")
	}
	if !f.user.SignInAttemptedAt.Equal(f.now) {
		t.Fatal("expected new window anchored at the latest failure")
	}
}

func TestRunSignInSuccessClearsFailureState(t *testing.T) {
	f := newSignInFixture(activeUser())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := RunSignIn(ctx, "user@example.com", "wrong", f.deps()); !errors.Is(err, errInvalidCred) {
			t.Fatalf("expected invalid credentials, got %v", err)
		}
	}

	if _, err := RunSignIn(ctx, "user@example.com", "Az3#Za3@", f.deps()); err != nil {
		t.Fatalf("RunSignIn error: %v", err)
	}
	if f.user.SignInAttemptedAt != nil || f.user.SignInFailures != 0 {
		t.Fatalf("expected clear failure state, got %+v", f.user)
	}
}

// A correct password against a deactivated account still counts a failure
// and returns the same opaque error as a mismatch.
func TestRunSignInInactiveAccount(t *testing.T) {
	user := activeUser()
	user.Active = false
	f := newSignInFixture(user)

	_, err := RunSignIn(context.Background(), "user@example.com", "Az3#Za3@", f.deps())
	if !errors.Is(err, errInvalidCred) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if f.user.SignInFailures != 1 {
		t.Fatalf("expected one recorded failure, got %d", f.user.SignInFailures)
	}
	if len(f.registered) != 0 {
		t.Fatal("no tokens may be issued for an inactive account")
	}
}

func TestRunSignInRateLimited(t *testing.T) {
	f := newSignInFixture(activeUser())
	deps := f.deps()
	deps.CheckRate = func(context.Context, string, string) error {
		return errBudgetExceeded
	}

	_, err := RunSignIn(context.Background(), "user@example.com", "Az3#Za3@", deps)
	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if len(f.registered) != 0 {
		t.Fatal("no tokens may be issued when rate limited")
	}
}

// A limiter error that is not a budget rejection is a cache failure and must
// surface as-is instead of masquerading as a rate-limit rejection.
func TestRunSignInLimiterTransportErrorPassesThrough(t *testing.T) {
	f := newSignInFixture(activeUser())
	deps := f.deps()
	deps.CheckRate = func(context.Context, string, string) error {
		return fmt.Errorf("%w: dial tcp refused", errCacheUnreliable)
	}

	_, err := RunSignIn(context.Background(), "user@example.com", "Az3#Za3@", deps)
	if !errors.Is(err, errCacheUnreliable) {
		t.Fatalf("expected cache error to pass through, got %v", err)
	}
	if errors.Is(err, errRateLimited) {
		t.Fatal("cache failure must not be reported as rate limited")
	}
	if len(f.audits) != 0 {
		t.Fatalf("expected no audit events, got %v", f.audits)
	}
}

func TestRunSignInIncrementTransportErrorPassesThrough(t *testing.T) {
	f := newSignInFixture(activeUser())
	deps := f.deps()
	deps.IncrementRate = func(context.Context, string, string) error {
		return fmt.Errorf("%w: dial tcp refused", errCacheUnreliable)
	}

	_, err := RunSignIn(context.Background(), "user@example.com", "wrong", deps)
	if !errors.Is(err, errCacheUnreliable) {
		t.Fatalf("expected cache error to pass through, got %v", err)
	}
	if errors.Is(err, errRateLimited) {
		t.Fatal("cache failure must not be reported as rate limited")
	}
}

func TestRunSignInIncrementBudgetTripsRejection(t *testing.T) {
	f := newSignInFixture(activeUser())
	deps := f.deps()
	deps.IncrementRate = func(context.Context, string, string) error {
		return errBudgetExceeded
	}

	_, err := RunSignIn(context.Background(), "user@example.com", "wrong", deps)
	if !errors.Is(err, errRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
}

func TestRunSignInMissingDeps(t *testing.T) {
	deps := newSignInFixture(activeUser()).deps()
	deps.RegisterTokens = nil

	_, err := RunSignIn(context.Background(), "user@example.com", "Az3#Za3@", deps)
	if !errors.Is(err, errNotReady) {
		t.Fatalf("expected engine-not-ready, got %v", err)
	}
}
