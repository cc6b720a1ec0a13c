package accountd

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aonyx-labs/accountd/session"
)

// Permission is re-exported from the session package so UserStore
// implementations and HTTP layers only need the root import.
type Permission = session.Permission

const (
	PermissionAdmin   = session.PermissionAdmin
	PermissionGeneral = session.PermissionGeneral
)

// TokenContent and TokenKind mirror the session package types carried by
// resolved tokens.
type (
	TokenContent = session.Content
	TokenKind    = session.Kind
)

const (
	TokenKindAccess  = session.KindAccess
	TokenKindRefresh = session.KindRefresh
)

// User is the persisted account record. PasswordHash is the peppered
// Argon2id PHC string and never leaves the backend surface.
type User struct {
	ID                uuid.UUID
	Email             string
	PasswordHash      string
	Active            bool
	Permission        Permission
	FamilyName        string
	GivenName         string
	LastSignInAt      *time.Time
	SignInAttemptedAt *time.Time
	SignInFailures    int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewUser is the record handed to UserStore.Create. Timestamps and the
// failure state columns are owned by the store.
type NewUser struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Permission   Permission
	FamilyName   string
	GivenName    string
}

// SignUpRequest is the engine-level account creation request.
type SignUpRequest struct {
	Email      string
	Password   string
	Permission Permission
	FamilyName string
	GivenName  string
}

// TokenPair is the engine-level sign-in response.
type TokenPair struct {
	Access  string
	Refresh string
}

// UserStore is the persistence contract the host application provides.
//
// Lookup methods return (nil, nil) for absent rows. Create must return an
// error matching ErrStoreDuplicateEmail on a unique-email violation. The
// three failure-state mutators must each be atomic per row.
type UserStore interface {
	Create(ctx context.Context, user NewUser) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]User, error)

	// UpdateFailureState records a failed sign-in attempt: the window
	// anchor timestamp and the failure count inside that window.
	UpdateFailureState(ctx context.Context, id uuid.UUID, attemptedAt time.Time, failures int) error
	// ClearFailureState resets the window anchor to NULL and the failure
	// count to zero.
	ClearFailureState(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	SetLastSignIn(ctx context.Context, id uuid.UUID, at time.Time) error
}
