// Package memory provides a map-backed UserStore for tests and local
// development. Not meant for production use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	accountd "github.com/aonyx-labs/accountd"
)

// Store keeps all accounts in process memory, guarded by one mutex.
type Store struct {
	mu    sync.Mutex
	users map[uuid.UUID]*accountd.User
	now   func() time.Time
}

var _ accountd.UserStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users: make(map[uuid.UUID]*accountd.User),
		now:   time.Now,
	}
}

// SetClock overrides the timestamp source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Create(_ context.Context, user accountd.NewUser) (*accountd.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return nil, fmt.Errorf("%w: %s", accountd.ErrStoreDuplicateEmail, user.Email)
		}
	}

	now := s.now().UTC()
	created := &accountd.User{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Active:       true,
		Permission:   user.Permission,
		FamilyName:   user.FamilyName,
		GivenName:    user.GivenName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = created

	out := *created
	return &out, nil
}

func (s *Store) ByEmail(_ context.Context, email string) (*accountd.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			out := *user
			return &out, nil
		}
	}
	return nil, nil
}

func (s *Store) ByID(_ context.Context, id uuid.UUID) (*accountd.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	out := *user
	return &out, nil
}

func (s *Store) List(_ context.Context) ([]accountd.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]accountd.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, *user)
	}
	// Stable order for callers that render listings.
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (s *Store) UpdateFailureState(_ context.Context, id uuid.UUID, attemptedAt time.Time, failures int) error {
	return s.mutate(id, func(user *accountd.User) {
		at := attemptedAt
		user.SignInAttemptedAt = &at
		user.SignInFailures = failures
	})
}

func (s *Store) ClearFailureState(_ context.Context, id uuid.UUID) error {
	return s.mutate(id, func(user *accountd.User) {
		user.SignInAttemptedAt = nil
		user.SignInFailures = 0
	})
}

func (s *Store) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	return s.mutate(id, func(user *accountd.User) {
		user.Active = active
	})
}

func (s *Store) SetLastSignIn(_ context.Context, id uuid.UUID, at time.Time) error {
	return s.mutate(id, func(user *accountd.User) {
		stamp := at
		user.LastSignInAt = &stamp
	})
}

func (s *Store) mutate(id uuid.UUID, fn func(*accountd.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return accountd.ErrUserNotFound
	}
	fn(user)
	user.UpdatedAt = s.now().UTC()
	return nil
}
