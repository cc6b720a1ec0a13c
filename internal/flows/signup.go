package flows

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/aonyx-labs/accountd/session"
)

// NewUserRecord is the flow-local shape of a user about to be persisted.
type NewUserRecord struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Permission   session.Permission
	FamilyName   string
	GivenName    string
}

// SignUpMetrics carries metric IDs needed by the sign-up flow.
type SignUpMetrics struct {
	Success   int
	Duplicate int
}

// SignUpEvents carries audit event names used by the sign-up flow.
type SignUpEvents struct {
	Success   string
	Duplicate string
}

// SignUpErrors carries host-level sentinel errors used by the sign-up flow.
// DuplicateSentinel is the error the store contract promises on a unique
// violation; EmailTaken is what callers see instead.
type SignUpErrors struct {
	EngineNotReady    error
	EmailTaken        error
	DuplicateSentinel error
}

// SignUpDeps captures sign-up dependencies.
type SignUpDeps struct {
	ValidateEmail    func(string) error
	ValidatePassword func(string) (string, error)
	HashPassword     func(string) (string, error)
	NewID            func() uuid.UUID
	CreateUser       func(context.Context, NewUserRecord) error

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics SignUpMetrics
	Events  SignUpEvents
	Errors  SignUpErrors
}

// RunSignUp validates the request, hashes the password, and persists the
// new user. Policy and email validation errors pass through unchanged so
// the host surface can classify them.
func RunSignUp(ctx context.Context, email, password string, permission session.Permission, familyName, givenName string, deps SignUpDeps) (uuid.UUID, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.ValidatePassword == nil ||
		deps.HashPassword == nil ||
		deps.NewID == nil ||
		deps.CreateUser == nil {
		return uuid.Nil, deps.Errors.EngineNotReady
	}

	if deps.ValidateEmail != nil {
		if err := deps.ValidateEmail(email); err != nil {
			return uuid.Nil, err
		}
	}

	validated, err := deps.ValidatePassword(password)
	if err != nil {
		return uuid.Nil, err
	}

	hash, err := deps.HashPassword(validated)
	if err != nil {
		return uuid.Nil, err
	}

	id := deps.NewID()
	record := NewUserRecord{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Permission:   permission,
		FamilyName:   familyName,
		GivenName:    givenName,
	}

	if err := deps.CreateUser(ctx, record); err != nil {
		if deps.Errors.DuplicateSentinel != nil && errors.Is(err, deps.Errors.DuplicateSentinel) {
			deps.MetricInc(deps.Metrics.Duplicate)
			deps.EmitAudit(ctx, deps.Events.Duplicate, false, "", deps.Errors.EmailTaken, func() map[string]string {
				return map[string]string{"email": email}
			})
			return uuid.Nil, deps.Errors.EmailTaken
		}
		return uuid.Nil, err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, id.String(), nil, func() map[string]string {
		return map[string]string{"email": email}
	})

	return id, nil
}
