// Package pairkey derives the canonical key for an unordered pair of user ids.
// The same key addresses both the connection and the conversation between two
// users, which is what makes create operations against those tables idempotent.
package pairkey

import (
	"errors"
	"strings"
)

const Separator = "_"

var ErrEmptyID = errors.New("pairkey: empty user id")

// Derive returns the order-independent key for two user ids: the ids sorted
// lexicographically and joined with Separator. Derive(a, b) == Derive(b, a).
func Derive(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", ErrEmptyID
	}
	if b < a {
		a, b = b, a
	}
	return a + Separator + b, nil
}

// Sort returns the two ids in canonical (lexicographic) order.
func Sort(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Contains reports whether userID is one of the two ids the key was derived
// from. Callers that already loaded the row should compare against its
// participant columns instead; this is for key-only contexts.
func Contains(key, userID string) bool {
	return key == userID ||
		strings.HasPrefix(key, userID+Separator) ||
		strings.HasSuffix(key, Separator+userID)
}
