package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalid covers every token that fails decoding: bad structure,
	// signature mismatch, or unusable claims. Callers are not told which.
	ErrInvalid = errors.New("invalid token")
)

// Claim is the decoded token payload: who the token was issued to and the
// Unix second at which it was meant to lapse.
type Claim struct {
	UserID     uuid.UUID
	Expiration uint64
}

// Pair is a freshly issued access/refresh token set together with the
// lifetimes the session store must apply to each.
type Pair struct {
	Access     string
	Refresh    string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Config holds the HMAC signing secret and the two token lifetimes.
type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Codec signs and verifies HS512 tokens carrying a Claim.
type Codec struct {
	config Config
}

// NewCodec validates the signing configuration. The refresh lifetime must
// strictly exceed the access lifetime by at least a whole second, because
// IssuePair truncates expirations to Unix seconds: any smaller gap would
// produce identical access and refresh tokens.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("token access TTL must be > 0")
	}
	if cfg.RefreshTTL/time.Second <= cfg.AccessTTL/time.Second {
		return nil, errors.New("token refresh TTL must exceed access TTL by at least one second")
	}

	return &Codec{config: cfg}, nil
}

// wireClaims is the on-the-wire claim set. Both registered names are carried
// as JSON strings, and no registered expiration is exposed to the parser:
// Verify deliberately performs no elapsed-time check, because the session
// cache entry TTL is the single authority on token expiry.
type wireClaims struct {
	Subject    string `json:"sub"`
	Expiration string `json:"exp"`
}

func (c wireClaims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (c wireClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return nil, nil }
func (c wireClaims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c wireClaims) GetIssuer() (string, error)                   { return "", nil }
func (c wireClaims) GetSubject() (string, error)                  { return c.Subject, nil }
func (c wireClaims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// Sign encodes the claim as an HS512-signed token.
func (c *Codec) Sign(claim Claim) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, wireClaims{
		Subject:    claim.UserID.String(),
		Expiration: strconv.FormatUint(claim.Expiration, 10),
	})

	signed, err := tok.SignedString(c.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and extracts the claim. The embedded
// expiration is returned but never compared against the clock here.
func (c *Codec) Verify(token string) (*Claim, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))

	var wire wireClaims
	parsed, err := parser.ParseWithClaims(token, &wire, func(*jwt.Token) (any, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalid
	}

	userID, err := uuid.Parse(wire.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: bad subject claim", ErrInvalid)
	}
	expiration, err := strconv.ParseUint(wire.Expiration, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad expiration claim", ErrInvalid)
	}

	return &Claim{UserID: userID, Expiration: expiration}, nil
}

// IssuePair signs an access and a refresh token for the user, stamping each
// with its own expiry relative to now.
func (c *Codec) IssuePair(userID uuid.UUID, now time.Time) (*Pair, error) {
	issued := now.Unix()
	if issued < 0 {
		return nil, errors.New("clock before Unix epoch")
	}

	access, err := c.Sign(Claim{
		UserID:     userID,
		Expiration: uint64(issued) + uint64(c.config.AccessTTL/time.Second),
	})
	if err != nil {
		return nil, err
	}

	refresh, err := c.Sign(Claim{
		UserID:     userID,
		Expiration: uint64(issued) + uint64(c.config.RefreshTTL/time.Second),
	})
	if err != nil {
		return nil, err
	}

	return &Pair{
		Access:     access,
		Refresh:    refresh,
		AccessTTL:  c.config.AccessTTL,
		RefreshTTL: c.config.RefreshTTL,
	}, nil
}
