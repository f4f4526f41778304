// Package jwks reads and writes JSON Web Key Sets and selects verification
// keys for a token header.
//
// Supported key types: OKP/Ed25519 (EdDSA), EC P-256/P-384/P-521 (ES*) and RSA (RS*/PS*).
package jwks

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoMatchingKey        = errors.New("no applicable key found in the JSON Web Key Set")
	ErrUnsupportedKey       = errors.New("unsupported JSON Web Key")
	ErrMultipleMatchingKeys = errors.New("multiple matching keys found in the JSON Web Key Set")
)

// JWK is the JSON form of a single key.
type JWK struct {
	KeyType   string `json:"kty"`
	KeyID     string `json:"kid,omitempty"`
	Algorithm string `json:"alg,omitempty"`
	Use       string `json:"use,omitempty"`
	Curve     string `json:"crv,omitempty"`
	X         string `json:"x,omitempty"`
	Y         string `json:"y,omitempty"`
	N         string `json:"n,omitempty"`
	E         string `json:"e,omitempty"`
	D         string `json:"d,omitempty"`
}

// Key is a decoded public key with its descriptor.
type Key struct {
	JWK    JWK
	Public crypto.PublicKey
}

// Set is a decoded JSON Web Key Set.
type Set struct {
	Keys []Key
}

// MultipleKeysError is returned by Set.ResolveKey when more than one key
// fits the token header. Candidates holds every fitting public key.
type MultipleKeysError struct {
	Candidates []crypto.PublicKey
}

func (e *MultipleKeysError) Error() string {
	return fmt.Sprintf("%s (%d candidates)", ErrMultipleMatchingKeys, len(e.Candidates))
}

func (e *MultipleKeysError) Is(target error) bool { return target == ErrMultipleMatchingKeys }

// Parse decodes a {"keys": [...]} document. Keys of unknown types are skipped.
func Parse(data []byte) (*Set, error) {
	var doc struct {
		Keys []JWK `json:"keys"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	set := &Set{}
	for _, j := range doc.Keys {
		pub, err := j.PublicKey()
		if errors.Is(err, ErrUnsupportedKey) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", j.KeyID, err)
		}
		set.Keys = append(set.Keys, Key{JWK: j.Public(), Public: pub})
	}
	return set, nil
}

// MarshalJSON encodes the set as a JWKS document with public parts only.
func (s *Set) MarshalJSON() ([]byte, error) {
	doc := struct {
		Keys []JWK `json:"keys"`
	}{Keys: make([]JWK, 0, len(s.Keys))}
	for _, k := range s.Keys {
		doc.Keys = append(doc.Keys, k.JWK.Public())
	}
	return json.Marshal(doc)
}

// Match returns the keys usable for a token signed with alg under kid. An
// empty kid matches any key id.
func (s *Set) Match(kid, alg string) []Key {
	var out []Key
	for _, k := range s.Keys {
		if kid != "" && k.JWK.KeyID != kid {
			continue
		}
		if k.JWK.Use != "" && k.JWK.Use != "sig" {
			continue
		}
		if k.JWK.Algorithm != "" && k.JWK.Algorithm != alg {
			continue
		}
		if !compatible(k.JWK, alg) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// ResolveKey is a jwt.Keyfunc. It returns the single key matching the token
// header, ErrNoMatchingKey, or a *MultipleKeysError listing the candidates.
func (s *Set) ResolveKey(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	alg, _ := t.Header["alg"].(string)

	keys := s.Match(kid, alg)
	switch len(keys) {
	case 0:
		return nil, ErrNoMatchingKey
	case 1:
		return keys[0].Public, nil
	}

	cands := make([]crypto.PublicKey, len(keys))
	for i, k := range keys {
		cands[i] = k.Public
	}
	return nil, &MultipleKeysError{Candidates: cands}
}

// Public strips private material from j.
func (j JWK) Public() JWK {
	j.D = ""
	return j
}

// PublicKey decodes the public key carried by j.
func (j JWK) PublicKey() (crypto.PublicKey, error) {
	switch j.KeyType {
	case "OKP":
		if j.Curve != "Ed25519" {
			return nil, fmt.Errorf("%w: curve %q", ErrUnsupportedKey, j.Curve)
		}
		x, err := decode(j.X)
		if err != nil {
			return nil, err
		}
		if len(x) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("ed25519 public key has %d bytes", len(x))
		}
		return ed25519.PublicKey(x), nil

	case "EC":
		var curve elliptic.Curve
		switch j.Curve {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("%w: curve %q", ErrUnsupportedKey, j.Curve)
		}
		x, err := decode(j.X)
		if err != nil {
			return nil, err
		}
		y, err := decode(j.Y)
		if err != nil {
			return nil, err
		}
		return &ecdsa.PublicKey{Curve: curve, X: new(big.Int).SetBytes(x), Y: new(big.Int).SetBytes(y)}, nil

	case "RSA":
		n, err := decode(j.N)
		if err != nil {
			return nil, err
		}
		e, err := decode(j.E)
		if err != nil {
			return nil, err
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}, nil
	}
	return nil, fmt.Errorf("%w: kty %q", ErrUnsupportedKey, j.KeyType)
}

func compatible(j JWK, alg string) bool {
	switch {
	case alg == "EdDSA":
		return j.KeyType == "OKP"
	case strings.HasPrefix(alg, "ES"):
		return j.KeyType == "EC"
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "PS"):
		return j.KeyType == "RSA"
	}
	return false
}

func decode(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("decode key material: %w", err)
	}
	return b, nil
}

func encode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
