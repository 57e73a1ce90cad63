// Package id generates opaque identifiers for values that never hit a
// database sequence, such as request correlation ids.
package id

import (
	"strings"

	"github.com/google/uuid"
)

// NewRequestID returns a random UUIDv4 rendered without dashes.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidRequestID reports whether a client-supplied request id is safe to echo
// back in headers and logs.
func ValidRequestID(value string) bool {
	if value == "" || len(value) > 128 {
		return false
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
