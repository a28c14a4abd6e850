package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cppla/audiencehub/models"
)

// Identity is the verified content of a session token.
type Identity struct {
	UserID    uint        `json:"user_id"`
	Role      models.Role `json:"role"`
	TokenID   string      `json:"-"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Claims defines JWT claims used in the application. The subject carries the user id.
type Claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens. Verification is
// self-contained and never touches storage.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService returns a service signing with secret and issuing tokens valid for ttl.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for user.
func (s *TokenService) Issue(user *models.User) (string, Identity, error) {
	if user == nil || user.ID == 0 {
		return "", Identity{}, errors.New("cannot issue token for unsaved user")
	}
	if !user.Role.Valid() {
		return "", Identity{}, fmt.Errorf("cannot issue token for role %q", user.Role)
	}

	// JWT timestamps have second precision; truncate so Identity matches the parsed token.
	now := s.now().Truncate(time.Second)
	id := Identity{
		UserID:    user.ID,
		Role:      user.Role,
		TokenID:   uuid.NewString(),
		ExpiresAt: now.Add(s.ttl),
	}
	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ID:        id.TokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(id.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", Identity{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, id, nil
}

// Verify validates signature, algorithm and expiry and returns the identity.
func (s *TokenService) Verify(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, ErrTokenMalformed
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Identity{}, ErrTokenMalformed
	default:
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrTokenInvalid
	}

	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	if !claims.Role.Valid() {
		return Identity{}, fmt.Errorf("%w: unknown role %q", ErrTokenInvalid, claims.Role)
	}

	return Identity{
		UserID:    uint(uid),
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
