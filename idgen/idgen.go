// CLAUDE:SUMMARY Snapshot identifiers: UUIDv7 generator with optional prefix, plus validation of incoming IDs.
// Package idgen generates and validates the identifiers shadowq stores.
//
// IDs are RFC 9562 UUIDv7, optionally prefixed ("snap_..."), so they sort by
// creation time in SQLite without an extra column.
package idgen

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of time-ordered UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every ID of gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Validate checks that id is prefix followed by a UUID and returns it in
// canonical lower-case form.
func Validate(prefix, id string) (string, error) {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return "", fmt.Errorf("idgen: %q: missing prefix %q", id, prefix)
	}
	u, err := uuid.Parse(rest)
	if err != nil {
		return "", fmt.Errorf("idgen: %q: %w", id, err)
	}
	return prefix + u.String(), nil
}
