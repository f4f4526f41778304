package jwks

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustKey(t *testing.T) PrivateKey {
	t.Helper()
	k, err := GenerateKey()
	require.NoError(t, err)
	return k
}

func TestPublicSet_RoundTrip(t *testing.T) {
	k1, k2 := mustKey(t), mustKey(t)
	require.NotEqual(t, k1.KeyID, k2.KeyID)

	data, err := json.Marshal(PublicSet(k1, k2))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"d"`)

	set, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, set.Keys, 2)
	assert.Equal(t, k1.KeyID, set.Keys[0].JWK.KeyID)
	assert.True(t, k1.Key.Public().(ed25519.PublicKey).Equal(set.Keys[0].Public))
}

func TestParse_SkipsUnsupported(t *testing.T) {
	set, err := Parse([]byte(`{"keys":[{"kty":"oct","k":"c2VjcmV0"},{"kty":"OKP","crv":"X25519","x":"AA"}]}`))
	require.NoError(t, err)
	assert.Empty(t, set.Keys)

	_, err = Parse([]byte(`{"keys":[{"kty":"OKP","crv":"Ed25519","x":"AAAA"}]}`))
	assert.Error(t, err)

	_, err = Parse([]byte(`nope`))
	assert.Error(t, err)
}

func TestResolveKey(t *testing.T) {
	k1, k2 := mustKey(t), mustKey(t)
	set := PublicSet(k1, k2)

	tok := &jwt.Token{Header: map[string]any{"alg": "EdDSA", "kid": k2.KeyID}}
	key, err := set.ResolveKey(tok)
	require.NoError(t, err)
	assert.True(t, k2.Key.Public().(ed25519.PublicKey).Equal(key))

	tok = &jwt.Token{Header: map[string]any{"alg": "EdDSA"}}
	_, err = set.ResolveKey(tok)
	var mke *MultipleKeysError
	require.True(t, errors.As(err, &mke))
	assert.Len(t, mke.Candidates, 2)
	assert.ErrorIs(t, err, ErrMultipleMatchingKeys)

	tok = &jwt.Token{Header: map[string]any{"alg": "RS256"}}
	_, err = set.ResolveKey(tok)
	assert.ErrorIs(t, err, ErrNoMatchingKey)

	tok = &jwt.Token{Header: map[string]any{"alg": "EdDSA", "kid": "unknown"}}
	_, err = set.ResolveKey(tok)
	assert.ErrorIs(t, err, ErrNoMatchingKey)
}

func TestPrivate_RoundTrip(t *testing.T) {
	k := mustKey(t)
	data, err := MarshalPrivate(k)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	keys, err := LoadPrivateFile(path)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, k.KeyID, keys[0].KeyID)
	assert.True(t, k.Key.Equal(keys[0].Key))
}
