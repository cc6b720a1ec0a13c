package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"
)

// phcShape recognizes the stored hash format without decoding it. Salt and
// hash segments are unpadded standard base64.
var phcShape = regexp.MustCompile(
	`^\$argon2id\$v=(?:16|19)\$m=[0-9]{1,10},t=[0-9]{1,10},p=[0-9]{1,3}\$[A-Za-z0-9+/]{22,64}\$[A-Za-z0-9+/]{22,86}$`,
)

// Config holds Argon2id cost parameters plus the server-side pepper that is
// appended to every password before hashing.
type Config struct {
	Pepper      string
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher derives and verifies peppered Argon2id password hashes in PHC
// string format.
type Hasher struct {
	config Config
}

// NewHasher validates the cost parameters against hard minimums and returns
// a ready Hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return &Hasher{config: cfg}, nil
}

// Hash derives an Argon2id hash for the peppered password using a fresh
// random salt and encodes it as a PHC string.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		h.peppered(password),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify recomputes the hash of the peppered password with the parameters
// embedded in encodedHash and compares in constant time. A mismatch is
// (false, nil); only an unparseable hash produces an error.
func (h *Hasher) Verify(password string, encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		h.peppered(password),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		uint32(len(parsed.hash)),
	)

	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// ValidPHC reports whether a stored credential looks like an Argon2id PHC
// string. Useful for guarding against accidentally persisting plaintext.
func ValidPHC(encodedHash string) bool {
	return phcShape.MatchString(encodedHash)
}

// Password bytes are used exactly as provided (no Unicode normalization);
// the pepper never leaves process memory.
func (h *Hasher) peppered(password string) []byte {
	return []byte(password + h.config.Pepper)
}

type parsedPHC struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

func parsePHC(encodedHash string) (*parsedPHC, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	if !strings.HasPrefix(parts[2], "v=") {
		return nil, errors.New("missing argon2 version")
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil {
		return nil, errors.New("invalid argon2 version")
	}
	if version != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var parsed parsedPHC
	if parsed.memory, parsed.time, parsed.parallelism, err = parseParams(parts[3]); err != nil {
		return nil, err
	}

	if parsed.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, errors.New("invalid salt encoding")
	}
	if len(parsed.salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt length")
	}

	if parsed.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, errors.New("invalid hash encoding")
	}
	if len(parsed.hash) < int(minKeyLength) {
		return nil, errors.New("invalid hash length")
	}

	return &parsed, nil
}

// parseParams expects the canonical PHC parameter order m,t,p.
func parseParams(part string) (memory uint32, timeCost uint32, parallelism uint8, err error) {
	pairs := strings.Split(part, ",")
	if len(pairs) != 3 ||
		!strings.HasPrefix(pairs[0], "m=") ||
		!strings.HasPrefix(pairs[1], "t=") ||
		!strings.HasPrefix(pairs[2], "p=") {
		return 0, 0, 0, errors.New("invalid parameter block")
	}

	m, err := strconv.ParseUint(pairs[0][2:], 10, 32)
	if err != nil || m < uint64(minMemoryKB) {
		return 0, 0, 0, errors.New("invalid memory parameter")
	}
	t, err := strconv.ParseUint(pairs[1][2:], 10, 32)
	if err != nil || t < uint64(minTimeCost) {
		return 0, 0, 0, errors.New("invalid time parameter")
	}
	p, err := strconv.ParseUint(pairs[2][2:], 10, 8)
	if err != nil || p < uint64(minParallelism) {
		return 0, 0, 0, errors.New("invalid parallelism parameter")
	}

	return uint32(m), uint32(t), uint8(p), nil
}

func validateConfig(cfg Config) error {
	if cfg.Memory < minMemoryKB {
		return errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return errors.New("password key length must be >= 16")
	}

	return nil
}
