package utils

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	MaxPasswordBytes = 72
)

var errPasswordTooLong = errors.New("must be at most 72 bytes")

// dummyHash is compared against when there is no stored hash so unknown
// accounts take as long to reject as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("audiencehub-dummy"), bcrypt.DefaultCost)

// ValidatePassword applies the account password policy.
func ValidatePassword(password string) error {
	return validation.Validate(password,
		validation.Required,
		validation.RuneLength(MinPasswordLength, 0),
		validation.By(func(any) error {
			if len(password) > MaxPasswordBytes {
				return errPasswordTooLong
			}
			return nil
		}),
	)
}

// HashPassword checks the policy and returns the bcrypt hash.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hash with its possible plaintext. An empty
// hash never matches.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
