package token

import (
	"context"
	"encoding/json"
)

// SignResult is what a signing oracle returns: the serialized token and the
// public key descriptor (a JWK) that verifies it.
type SignResult struct {
	Token string          `json:"token"`
	Key   json.RawMessage `json:"key"`
}

// Signer turns a JSON payload into a signed token string.
type Signer interface {
	Sign(ctx context.Context, payload []byte, keyID string) (SignResult, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(ctx context.Context, payload []byte, keyID string) (SignResult, error)

func (f SignerFunc) Sign(ctx context.Context, payload []byte, keyID string) (SignResult, error) {
	return f(ctx, payload, keyID)
}
