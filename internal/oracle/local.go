package oracle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/swiftvfs/internal/jwks"
	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

// payloadClaims carries a pre-encoded JSON payload through jwt.Token.
// The token payload has no registered claims, so every getter reports none.
type payloadClaims json.RawMessage

func (c payloadClaims) MarshalJSON() ([]byte, error) { return json.RawMessage(c), nil }

func (payloadClaims) GetExpirationTime() (*jwt.NumericDate, error) { return nil, nil }
func (payloadClaims) GetIssuedAt() (*jwt.NumericDate, error) { return nil, nil }
func (payloadClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (payloadClaims) GetIssuer() (string, error) { return "", nil }
func (payloadClaims) GetSubject() (string, error) { return "", nil }
func (payloadClaims) GetAudience() (jwt.ClaimStrings, error) { return nil, nil }

// LocalSigner signs token payloads as EdDSA JWTs with in-process keys.
// It implements token.Signer and KeySource.
type LocalSigner struct {
	keys    []jwks.PrivateKey
	mainKey string
}

// NewLocalSigner returns a signer over keys. mainKey, when set, is used for
// requests that name no key.
func NewLocalSigner(keys []jwks.PrivateKey, mainKey string) *LocalSigner {
	return &LocalSigner{keys: keys, mainKey: mainKey}
}

// Sign implements token.Signer.
func (s *LocalSigner) Sign(_ context.Context, payload []byte, keyID string) (token.SignResult, error) {
	if !json.Valid(payload) {
		return token.SignResult{}, fmt.Errorf("sign: payload is not valid JSON")
	}

	key, err := s.pick(keyID)
	if err != nil {
		return token.SignResult{}, err
	}

	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, payloadClaims(payload))
	t.Header["kid"] = key.KeyID

	signed, err := t.SignedString(key.Key)
	if err != nil {
		return token.SignResult{}, fmt.Errorf("sign: %w", err)
	}

	pub, err := json.Marshal(key.PublicJWK())
	if err != nil {
		return token.SignResult{}, err
	}
	return token.SignResult{Token: signed, Key: pub}, nil
}

// FetchKeys implements KeySource with the public halves of the signing keys.
func (s *LocalSigner) FetchKeys(context.Context) (*jwks.Set, error) {
	return jwks.PublicSet(s.keys...), nil
}

func (s *LocalSigner) pick(keyID string) (jwks.PrivateKey, error) {
	if keyID == "" {
		keyID = s.mainKey
	}
	if keyID == "" {
		if len(s.keys) == 0 {
			return jwks.PrivateKey{}, ErrNoSigningKey
		}
		return s.keys[0], nil
	}
	for _, k := range s.keys {
		if k.KeyID == keyID {
			return k, nil
		}
	}
	return jwks.PrivateKey{}, fmt.Errorf("%w: kid %q", ErrNoSigningKey, keyID)
}
