// Package crypt produces and verifies salted bcrypt password hashes.
package crypt

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 5

// MaxPasswordLen is the longest password bcrypt accepts, in bytes.
const MaxPasswordLen = 72

// ErrPasswordTooLong is returned by Hash for passwords bcrypt cannot take.
var ErrPasswordTooLong = errors.New("password longer than 72 bytes")

// Hash returns a salted bcrypt hash of password. A cost outside bcrypt's
// accepted range falls back to DefaultCost.
func Hash(password string, cost int) (string, error) {
	if len(password) > MaxPasswordLen {
		return "", ErrPasswordTooLong
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}

// Check reports whether password matches the bcrypt hash stored. Anything
// that is not a bcrypt hash never matches.
func Check(password, stored string) bool {
	if stored == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
