// Package tokens keeps the visitor token saved by "token -save" in the
// local state database.
package tokens

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Current when no token is saved.
var ErrNotFound = errors.New("no saved token")

// Record is a saved token. Payload is the JSON form of the decoded token;
// the other fields are copies of it for display and expiry checks.
type Record struct {
	Serialized string
	UserID     string
	PageSpace  string
	ExpiresAt  int64
	Payload    []byte
	SavedAt    time.Time
}

// Expired reports whether the token is past its expiry at now.
func (r Record) Expired(now time.Time) bool {
	return r.ExpiresAt <= now.Unix()
}

// Repository holds at most one token.
type Repository interface {
	// Save replaces the saved token with r.
	Save(ctx context.Context, r Record) error
	// Current returns the saved token or ErrNotFound.
	Current(ctx context.Context) (Record, error)
	// Delete drops the saved token. Deleting nothing is not an error.
	Delete(ctx context.Context) error
}
