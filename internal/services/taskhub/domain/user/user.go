// Package user defines accounts and credential validation.
package user

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"golang.org/x/text/unicode/norm"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6
	MaxPasswordLength = 100
)

// User is a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NormalizeUsername trims, NFC-normalizes and lower-cases a username and checks
// its length.
func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(norm.NFC.String(strings.TrimSpace(raw)))
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"username must be between 3 and 50 characters",
			map[string]string{"Field": "username"})
	}
	if strings.ContainsFunc(username, func(r rune) bool { return r <= ' ' }) {
		return "", apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"username must not contain whitespace",
			map[string]string{"Field": "username"})
	}
	return username, nil
}

// ValidatePassword checks password length bounds.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return apperrors.WithMetadata(apperrors.CodeInvalidInput,
			"password must be between 6 and 100 characters",
			map[string]string{"Field": "password"})
	}
	return nil
}
