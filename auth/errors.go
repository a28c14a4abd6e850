package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email, wrong password and inactive accounts
	// alike so callers cannot probe which one applied.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrTokenMalformed     = errors.New("token is malformed")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenRevoked       = errors.New("token has been revoked")
	ErrInactiveAccount    = errors.New("account is not active")
)

// IsUnauthenticated reports whether err means the caller must be treated as anonymous.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrInactiveAccount) ||
		errors.Is(err, ErrInvalidCredentials)
}
