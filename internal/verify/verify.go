// Package verify checks serialized tokens against a set of public keys.
package verify

import (
	"crypto"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/swiftvfs/internal/jwks"
	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

// Error codes reported by VerifyError.
const (
	CodeMultipleMatchingKeys = "ERR_JWKS_MULTIPLE_MATCHING_KEYS"
	CodeNoMatchingKey        = "ERR_JWKS_NO_MATCHING_KEY"
	CodeNoValidKey           = "ERR_JWKS_NO_VALID_KEY"
	CodeSignatureFailed      = "ERR_JWS_SIGNATURE_VERIFICATION_FAILED"
	CodeInvalid              = "ERR_JWS_INVALID"
	CodeInvalidPayload       = "ERR_TOKEN_INVALID"
)

// Algorithms accepted for token signatures.
var Algorithms = []string{"EdDSA", "ES256", "ES384", "ES512", "RS256", "RS384", "RS512", "PS256", "PS384", "PS512"}

// Validity classifies a verification outcome.
type Validity int

const (
	Malformed Validity = iota
	Unverified
	Verified
)

func (v Validity) String() string {
	switch v {
	case Verified:
		return "verified"
	case Unverified:
		return "unverified"
	}
	return "malformed"
}

// KeyResolver picks the verification key for a parsed token. *jwks.Set
// implements it; a resolver that cannot decide between several keys
// returns a *jwks.MultipleKeysError.
type KeyResolver interface {
	ResolveKey(t *jwt.Token) (any, error)
}

// VerifyError carries a stable code next to the underlying cause.
type VerifyError struct {
	Code string
	Err  error
}

func (e *VerifyError) Error() string {
	if e.Err == nil {
		return "verify: " + e.Code
	}
	return fmt.Sprintf("verify: %s: %v", e.Code, e.Err)
}

func (e *VerifyError) Unwrap() error { return e.Err }

// Result describes a verified or rejected token. Payload is decoded even
// when the signature could not be verified, unless the token is malformed.
type Result struct {
	Payload   *token.Token
	Algorithm string
	KeyID     string
	Validity  Validity
}

// VerifyToken checks the signature of serialized against keys and decodes
// its payload. When keys reports several candidates each is tried in turn;
// only signature mismatches move on to the next candidate.
func VerifyToken(serialized string, keys KeyResolver) (*Result, error) {
	parser := jwt.NewParser(jwt.WithValidMethods(Algorithms))

	header, payload, err := decode(parser, serialized)
	if err != nil {
		return &Result{Validity: Malformed}, &VerifyError{Code: CodeInvalid, Err: err}
	}
	res := &Result{Validity: Unverified}
	res.Algorithm, _ = header["alg"].(string)
	res.KeyID, _ = header["kid"].(string)

	tok, perr := token.Parse(payload)
	if perr != nil {
		res.Validity = Malformed
		return res, &VerifyError{Code: CodeInvalidPayload, Err: perr}
	}
	res.Payload = tok

	_, err = parser.Parse(serialized, keys.ResolveKey)
	var multi *jwks.MultipleKeysError
	if errors.As(err, &multi) {
		err = tryCandidates(parser, serialized, multi.Candidates)
	}
	if err != nil {
		return res, classify(err)
	}

	res.Validity = Verified
	return res, nil
}

func tryCandidates(parser *jwt.Parser, serialized string, candidates []crypto.PublicKey) error {
	for _, c := range candidates {
		_, err := parser.Parse(serialized, func(*jwt.Token) (any, error) { return c, nil })
		if err == nil {
			return nil
		}
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return err
		}
	}
	return &VerifyError{Code: CodeNoValidKey, Err: jwt.ErrTokenSignatureInvalid}
}

func classify(err error) error {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve
	}
	switch {
	case errors.Is(err, jwks.ErrMultipleMatchingKeys):
		return &VerifyError{Code: CodeMultipleMatchingKeys, Err: err}
	case errors.Is(err, jwks.ErrNoMatchingKey):
		return &VerifyError{Code: CodeNoMatchingKey, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return &VerifyError{Code: CodeSignatureFailed, Err: err}
	}
	return &VerifyError{Code: CodeInvalid, Err: err}
}

// decode splits a compact JWS without verifying it.
func decode(parser *jwt.Parser, serialized string) (map[string]any, []byte, error) {
	parts := strings.Split(serialized, ".")
	if len(parts) != 3 {
		return nil, nil, jwt.ErrTokenMalformed
	}
	t, _, err := parser.ParseUnverified(serialized, jwt.MapClaims{})
	if err != nil {
		return nil, nil, err
	}
	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", jwt.ErrTokenMalformed, err)
	}
	return t.Header, payload, nil
}
