package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/DmytryS/user-actions-service/pkg/util"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// HashPassword hashes a chosen password for storage. Passwords bcrypt cannot
// take come back as a validation error so callers can surface them as 400.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", apperrors.NewValidationError("password is too long", map[string]any{
			"password": fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes),
		})
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword reports a mismatch between a stored hash and a login attempt.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
