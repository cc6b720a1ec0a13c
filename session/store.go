package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aonyx-labs/accountd/token"
)

var (
	// ErrRedisUnavailable wraps every transport failure talking to the
	// session cache.
	ErrRedisUnavailable = errors.New("session cache unavailable")
	// ErrCorruptEntry is returned when a cache entry exists but cannot be
	// decoded. Guards treat it as an internal fault, never as unauthorized.
	ErrCorruptEntry = errors.New("corrupt session entry")
)

// Store keeps one cache entry per live token, keyed by token fingerprint
// and expired by Redis TTL.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a session Store backed by the given Redis client. All
// keys are namespaced under prefix.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

// Fingerprint derives the cache key material for a token: lowercase hex
// SHA-256 of the raw token bytes. Raw tokens never reach Redis.
func Fingerprint(tok string) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}

func (s *Store) key(tok string) string {
	return s.prefix + Fingerprint(tok)
}

// Register stores one entry per token in the pair, each under its own
// fingerprint with its own TTL. If the second write fails the first entry
// is left behind; it self-expires and resolves to a valid session, so no
// rollback is attempted.
func (s *Store) Register(ctx context.Context, userID uuid.UUID, pair *token.Pair, permission Permission) error {
	access := encodeContent(Content{UserID: userID, Kind: KindAccess, Permission: permission})
	if err := s.redis.Set(ctx, s.key(pair.Access), access, pair.AccessTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	refresh := encodeContent(Content{UserID: userID, Kind: KindRefresh, Permission: permission})
	if err := s.redis.Set(ctx, s.key(pair.Refresh), refresh, pair.RefreshTTL).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Resolve looks up the session entry for a token. A missing entry — never
// written, or already expired — is (nil, nil), not an error.
func (s *Store) Resolve(ctx context.Context, tok string) (*Content, error) {
	value, err := s.redis.Get(ctx, s.key(tok)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	content, err := decodeContent(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}

	return content, nil
}

// Revoke drops the entry for a token if present. Missing entries are not an
// error; revocation is idempotent.
func (s *Store) Revoke(ctx context.Context, tok string) error {
	if err := s.redis.Del(ctx, s.key(tok)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
