// Package oracle provides the signing capabilities the core relies on:
// temporary URL signatures for storage access and token signatures for
// capability tokens.
//
// Two families of implementations exist. Remote talks to the host's REST
// endpoints and never sees key material. TempURLSigner and LocalSigner hold
// keys in process and are used by the command line tool and in tests.
package oracle

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/swiftvfs/internal/jwks"
)

var ErrNoSigningKey = errors.New("no signing key available")

// SignatureRequest asks for a temporary URL signature.
type SignatureRequest struct {
	Method string `json:"method"`
	// Path is relative to the site prefix. With Prefix set it names a
	// directory and the grant covers every key below it.
	Path      string `json:"path"`
	Prefix    bool   `json:"prefix"`
	ExpiresAt int64  `json:"expiresAt"`
}

// Signature is a temporary URL signature as issued by an oracle.
type Signature struct {
	Signature string `json:"signature"`
	HMACAlgo  string `json:"hmacAlgo"`
	ExpiresAt int64  `json:"expiresAt"`
}

// SignatureOracle issues temporary URL signatures.
type SignatureOracle interface {
	SignURL(ctx context.Context, req SignatureRequest) (Signature, error)
}

// KeySource provides the current public verification keys.
type KeySource interface {
	FetchKeys(ctx context.Context) (*jwks.Set, error)
}
