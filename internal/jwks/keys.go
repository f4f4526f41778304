package jwks

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// PrivateKey is an Ed25519 signing key with its key id.
type PrivateKey struct {
	KeyID string
	Key   ed25519.PrivateKey
}

// GenerateKey creates a fresh Ed25519 key with a random key id.
func GenerateKey() (PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{KeyID: uuid.NewString(), Key: priv}, nil
}

// JWK returns the private JWK of k, including the "d" parameter.
func (k PrivateKey) JWK() JWK {
	return JWK{
		KeyType:   "OKP",
		KeyID:     k.KeyID,
		Algorithm: "EdDSA",
		Use:       "sig",
		Curve:     "Ed25519",
		X:         encode(k.Key.Public().(ed25519.PublicKey)),
		D:         encode(k.Key.Seed()),
	}
}

// PublicJWK returns the public descriptor of k.
func (k PrivateKey) PublicJWK() JWK {
	return k.JWK().Public()
}

// PublicSet returns a Set holding the public halves of keys.
func PublicSet(keys ...PrivateKey) *Set {
	s := &Set{}
	for _, k := range keys {
		s.Keys = append(s.Keys, Key{JWK: k.PublicJWK(), Public: k.Key.Public()})
	}
	return s
}

// ParsePrivate decodes a JWKS document whose OKP keys carry private parts.
func ParsePrivate(data []byte) ([]PrivateKey, error) {
	var doc struct {
		Keys []JWK `json:"keys"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode private jwks: %w", err)
	}

	var out []PrivateKey
	for _, j := range doc.Keys {
		if j.KeyType != "OKP" || j.Curve != "Ed25519" || j.D == "" {
			continue
		}
		seed, err := decode(j.D)
		if err != nil {
			return nil, err
		}
		if len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("key %q: seed has %d bytes", j.KeyID, len(seed))
		}
		out = append(out, PrivateKey{KeyID: j.KeyID, Key: ed25519.NewKeyFromSeed(seed)})
	}
	return out, nil
}

// MarshalPrivate encodes keys as a JWKS document including private parts.
func MarshalPrivate(keys ...PrivateKey) ([]byte, error) {
	doc := struct {
		Keys []JWK `json:"keys"`
	}{Keys: make([]JWK, 0, len(keys))}
	for _, k := range keys {
		doc.Keys = append(doc.Keys, k.JWK())
	}
	return json.MarshalIndent(doc, "", "  ")
}

// LoadPrivateFile reads private keys from a JWKS file.
func LoadPrivateFile(path string) ([]PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePrivate(data)
}
