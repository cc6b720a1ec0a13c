// Package postgres implements the accountd UserStore contract on top of a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	accountd "github.com/aonyx-labs/accountd"
)

const uniqueViolation = "23505"

const userColumns = `id, email, password, active, permission_code,
	family_name, given_name, last_sign_in_at, sign_in_attempted_at,
	number_of_sign_in_failures, created_at, updated_at`

// Store is the Postgres-backed user store. Safe for concurrent use; the
// pool handles connection management.
type Store struct {
	pool *pgxpool.Pool
}

var _ accountd.UserStore = (*Store)(nil)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts the account row. A unique-email violation is reported as
// ErrStoreDuplicateEmail per the store contract.
func (s *Store) Create(ctx context.Context, user accountd.NewUser) (*accountd.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password, active, permission_code,
			family_name, given_name, number_of_sign_in_failures)
		VALUES ($1, $2, $3, TRUE, $4, $5, $6, 0)
		RETURNING `+userColumns,
		user.ID, user.Email, user.PasswordHash, int16(user.Permission),
		user.FamilyName, user.GivenName,
	)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", accountd.ErrStoreDuplicateEmail, user.Email)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	return created, nil
}

// ByEmail loads the account for an email, (nil, nil) when absent.
func (s *Store) ByEmail(ctx context.Context, email string) (*accountd.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user by email: %w", err)
	}

	return user, nil
}

// ByID loads the account for an id, (nil, nil) when absent.
func (s *Store) ByID(ctx context.Context, id uuid.UUID) (*accountd.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// List returns every account ordered by creation time.
func (s *Store) List(ctx context.Context) ([]accountd.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []accountd.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

// UpdateFailureState writes the failure window anchor and count. A single
// UPDATE is atomic per row; the row lock serializes concurrent attempts.
func (s *Store) UpdateFailureState(ctx context.Context, id uuid.UUID, attemptedAt time.Time, failures int) error {
	return s.exec(ctx, `
		UPDATE users
		SET sign_in_attempted_at = $2,
			number_of_sign_in_failures = $3,
			updated_at = statement_timestamp()
		WHERE id = $1`,
		id, attemptedAt, failures,
	)
}

// ClearFailureState resets the failure window in one statement.
func (s *Store) ClearFailureState(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, `
		UPDATE users
		SET sign_in_attempted_at = NULL,
			number_of_sign_in_failures = 0,
			updated_at = statement_timestamp()
		WHERE id = $1`,
		id,
	)
}

func (s *Store) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.exec(ctx, `
		UPDATE users
		SET active = $2,
			updated_at = statement_timestamp()
		WHERE id = $1`,
		id, active,
	)
}

func (s *Store) SetLastSignIn(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.exec(ctx, `
		UPDATE users
		SET last_sign_in_at = $2,
			updated_at = statement_timestamp()
		WHERE id = $1`,
		id, at,
	)
}

func (s *Store) exec(ctx context.Context, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return accountd.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*accountd.User, error) {
	var (
		user accountd.User
		code int16
	)
	if err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Active, &code,
		&user.FamilyName, &user.GivenName, &user.LastSignInAt, &user.SignInAttemptedAt,
		&user.SignInFailures, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return nil, err
	}

	user.Permission = accountd.Permission(code)
	return &user, nil
}
