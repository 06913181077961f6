package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CodeHashCost is lower than a password cost: codes live for minutes and
// brute force is bounded by the lockout policy.
const CodeHashCost = bcrypt.MinCost + 2

// HashCode hashes a verification code for storage
func HashCode(code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("code cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), CodeHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}

	return string(hash), nil
}

// CompareCode reports whether code matches a hash produced by HashCode
func CompareCode(hash, code string) bool {
	if hash == "" || code == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

// EqualCode compares two plain codes in constant time
func EqualCode(expected, actual string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}
