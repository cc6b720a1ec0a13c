package accountd

import (
	"context"
	"errors"
	"regexp"

	"github.com/google/uuid"

	"github.com/aonyx-labs/accountd/internal/flows"
	"github.com/aonyx-labs/accountd/internal/rate"
	"github.com/aonyx-labs/accountd/password"
)

const (
	minEmailLength = 6
	maxEmailLength = 254
)

var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateEmail(email string) error {
	if len(email) < minEmailLength || len(email) > maxEmailLength {
		return ErrInvalidEmail
	}
	if !emailShape.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// flowAudit adapts the engine audit helper to the flows callback shape.
func (e *Engine) flowAudit(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string) {
	e.emitAudit(ctx, event, success, userID, err, meta)
}

func (e *Engine) flowMetricInc(id int) {
	e.metricInc(MetricID(id))
}

// SignUp validates the request, hashes the password, and creates the
// account. The created row is returned as persisted by the store.
func (e *Engine) SignUp(ctx context.Context, req SignUpRequest) (*User, error) {
	if e == nil || e.users == nil || e.hasher == nil {
		return nil, ErrEngineNotReady
	}
	if !req.Permission.Valid() {
		return nil, ErrInvalidPermission
	}

	var created *User
	deps := flows.SignUpDeps{
		ValidateEmail:    validateEmail,
		ValidatePassword: password.Validate,
		HashPassword:     e.hasher.Hash,
		NewID:            uuid.New,
		CreateUser: func(ctx context.Context, record flows.NewUserRecord) error {
			user, err := e.users.Create(ctx, NewUser{
				ID:           record.ID,
				Email:        record.Email,
				PasswordHash: record.PasswordHash,
				Permission:   record.Permission,
				FamilyName:   record.FamilyName,
				GivenName:    record.GivenName,
			})
			if err != nil {
				return err
			}
			created = user
			return nil
		},
		MetricInc: e.flowMetricInc,
		EmitAudit: e.flowAudit,
		Metrics: flows.SignUpMetrics{
			Success:   int(MetricSignUpSuccess),
			Duplicate: int(MetricSignUpDuplicate),
		},
		Events: flows.SignUpEvents{
			Success:   auditEventSignUpSuccess,
			Duplicate: auditEventSignUpDuplicate,
		},
		Errors: flows.SignUpErrors{
			EngineNotReady:    ErrEngineNotReady,
			EmailTaken:        ErrEmailTaken,
			DuplicateSentinel: ErrStoreDuplicateEmail,
		},
	}

	if _, err := flows.RunSignUp(ctx, req.Email, req.Password, req.Permission, req.FamilyName, req.GivenName, deps); err != nil {
		return nil, err
	}
	if created == nil {
		return nil, errors.New("user store returned no row for created user")
	}

	return created, nil
}

// SignIn runs the credential check and failure accounting, issues a token
// pair, and registers both tokens in the session cache.
func (e *Engine) SignIn(ctx context.Context, email, pw string) (*TokenPair, error) {
	if e == nil || e.users == nil || e.hasher == nil || e.codec == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}

	deps := flows.SignInDeps{
		AttemptWindow:       e.config.Lockout.AttemptWindow,
		FailureThreshold:    e.config.Lockout.FailureThreshold,
		ClientIPFromContext: clientIPFromContext,
		UserByEmail: func(ctx context.Context, email string) (*flows.SignInUser, error) {
			user, err := e.users.ByEmail(ctx, email)
			if err != nil || user == nil {
				return nil, err
			}
			return &flows.SignInUser{
				ID:                user.ID,
				Email:             user.Email,
				PasswordHash:      user.PasswordHash,
				Active:            user.Active,
				Permission:        user.Permission,
				SignInAttemptedAt: user.SignInAttemptedAt,
				SignInFailures:    user.SignInFailures,
			}, nil
		},
		VerifyPassword:     e.hasher.Verify,
		UpdateFailureState: e.users.UpdateFailureState,
		ClearFailureState:  e.users.ClearFailureState,
		SetActive:          e.users.SetActive,
		SetLastSignIn:      e.users.SetLastSignIn,
		IssuePair:          e.codec.IssuePair,
		RegisterTokens:     e.sessions.Register,
		MetricInc:          e.flowMetricInc,
		EmitAudit:          e.flowAudit,
		Metrics: flows.SignInMetrics{
			Success:     int(MetricSignInSuccess),
			Failure:     int(MetricSignInFailure),
			RateLimited: int(MetricSignInRateLimited),
			Lockout:     int(MetricAccountLocked),
		},
		Events: flows.SignInEvents{
			Success:     auditEventSignInSuccess,
			Failure:     auditEventSignInFailure,
			RateLimited: auditEventSignInRateLimited,
			Lockout:     auditEventAccountLocked,
		},
		Errors: flows.SignInErrors{
			EngineNotReady:      ErrEngineNotReady,
			InvalidCredentials:  ErrInvalidCredentials,
			RateLimited:         ErrSignInRateLimited,
			RateLimitedSentinel: rate.ErrRateLimited,
		},
	}

	if e.rateLimiter != nil {
		deps.CheckRate = e.rateLimiter.CheckSignIn
		deps.IncrementRate = e.rateLimiter.IncrementSignIn
		deps.ResetRate = e.rateLimiter.ResetSignIn
	}

	result, err := flows.RunSignIn(ctx, email, pw, deps)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		Access:  result.AccessToken,
		Refresh: result.RefreshToken,
	}, nil
}

// ListUsers returns every account. Authorization is the caller's concern;
// the HTTP layer restricts this to admins.
func (e *Engine) ListUsers(ctx context.Context) ([]User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	return e.users.List(ctx)
}

// GetUser returns one account by id.
func (e *Engine) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.users.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// SetUserActive flips the account's active flag, for operator tooling that
// unlocks accounts deactivated by the failure threshold.
func (e *Engine) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}
	return e.users.SetActive(ctx, id, active)
}
