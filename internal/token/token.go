// Package token defines the capability token handed to visitors: a user
// identity, a page space and pre-computed temporary URL signatures, one per
// HTTP method, bound to a common expiry.
//
// A Token is immutable after New. Serialization into a signed string is
// delegated to a Signer; this package never holds private key material.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"
)

// Version1 is the only supported payload version.
const Version1 = "1"

// now is a test seam for time.Now.
var now = time.Now

// User identifies the token holder. ID is used as a path segment.
type User struct {
	ID          string  `json:"id"`
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
}

// Swift carries the storage grant. Pointer and map fields are nil when the
// corresponding JSON key is absent.
type Swift struct {
	PageSpace  *string           `json:"pageSpace"`
	Signatures map[string]string `json:"signatures"`
	ExpiresAt  *int64            `json:"expiresAt"`
}

// Data is the wire representation of a token payload.
type Data struct {
	Version string `json:"version"`
	User    *User  `json:"user"`
	Swift   *Swift `json:"swift"`
}

// Token is a validated, read-only token payload.
type Token struct {
	version    string
	user       User
	pageSpace  string
	signatures map[string]string
	expiresAt  int64
}

// New validates d and builds a Token from it.
//
// It fails with *UnsupportedVersionError for unknown versions and with
// *InvalidTokenError when a required field is missing.
func New(d Data) (*Token, error) {
	if d.Version != Version1 {
		return nil, &UnsupportedVersionError{Version: d.Version}
	}

	switch {
	case d.User == nil:
		return nil, &InvalidTokenError{Field: "user"}
	case d.Swift == nil:
		return nil, &InvalidTokenError{Field: "swift"}
	case d.Swift.PageSpace == nil:
		return nil, &InvalidTokenError{Field: "swift.pageSpace"}
	case d.Swift.Signatures == nil:
		return nil, &InvalidTokenError{Field: "swift.signatures"}
	case d.Swift.ExpiresAt == nil:
		return nil, &InvalidTokenError{Field: "swift.expiresAt"}
	}

	t := &Token{
		version:    d.Version,
		user:       copyUser(*d.User),
		pageSpace:  *d.Swift.PageSpace,
		signatures: make(map[string]string, len(d.Swift.Signatures)),
		expiresAt:  *d.Swift.ExpiresAt,
	}
	for m, sig := range d.Swift.Signatures {
		t.signatures[strings.ToUpper(m)] = sig
	}
	return t, nil
}

// Parse decodes a JSON payload and validates it with New.
func Parse(payload []byte) (*Token, error) {
	var d Data
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, &InvalidTokenError{Field: "payload", Err: err}
	}
	return New(d)
}

// Version returns the payload version.
func (t *Token) Version() string { return t.version }

// User returns a copy of the token holder.
func (t *Token) User() User { return copyUser(t.user) }

// PageSpace returns the storage sub-scope below the user's area.
func (t *Token) PageSpace() string { return t.pageSpace }

// ExpiresAt returns the Unix expiry in seconds; zero means no expiry.
func (t *Token) ExpiresAt() int64 { return t.expiresAt }

// Methods returns the HTTP methods the token carries a signature for.
func (t *Token) Methods() []string {
	out := make([]string, 0, len(t.signatures))
	for m := range t.signatures {
		out = append(out, m)
	}
	return out
}

// Signature looks up the signature for method, ignoring case. A false result
// means the token grants nothing for that method; it is not an error here.
func (t *Token) Signature(method string) (string, bool) {
	sig, ok := t.signatures[strings.ToUpper(method)]
	return sig, ok
}

// Expired reports whether the expiry lies in the past. A zero expiry never expires.
func (t *Token) Expired() bool {
	if t.expiresAt == 0 {
		return false
	}
	return t.expiresAt < now().Unix()
}

// ExpiredAt returns the expiry as a time. The boolean is false for a zero
// expiry, in which case the time is meaningless.
func (t *Token) ExpiredAt() (time.Time, bool) {
	if t.expiresAt == 0 {
		return time.Time{}, false
	}
	return time.Unix(t.expiresAt, 0), true
}

// Data returns a deep copy of the wire representation.
func (t *Token) Data() Data {
	u := copyUser(t.user)
	ps := t.pageSpace
	exp := t.expiresAt
	return Data{
		Version: t.version,
		User:    &u,
		Swift: &Swift{
			PageSpace:  &ps,
			Signatures: maps.Clone(t.signatures),
			ExpiresAt:  &exp,
		},
	}
}

// MarshalJSON encodes the token as its wire payload.
func (t *Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Data())
}

// Serialize encodes the payload and hands it to signer. keyID selects the
// signing key; an empty keyID lets the signer choose.
func (t *Token) Serialize(ctx context.Context, keyID string, signer Signer) (string, error) {
	payload, err := json.Marshal(t.Data())
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}

	res, err := signer.Sign(ctx, payload, keyID)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return res.Token, nil
}

func copyUser(u User) User {
	out := User{ID: u.ID}
	if u.Email != nil {
		e := *u.Email
		out.Email = &e
	}
	if u.DisplayName != nil {
		n := *u.DisplayName
		out.DisplayName = &n
	}
	return out
}

// Build assembles a version 1 token from its parts.
func Build(user User, pageSpace string, signatures map[string]string, expiresAt int64) (*Token, error) {
	return New(Data{
		Version: Version1,
		User:    &user,
		Swift: &Swift{
			PageSpace:  &pageSpace,
			Signatures: signatures,
			ExpiresAt:  &expiresAt,
		},
	})
}
