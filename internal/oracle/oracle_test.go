package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/swiftvfs/internal/jwks"
	"github.com/dmitrijs2005/swiftvfs/internal/scope"
)

var testScope = scope.Config{
	StorageURL: "https://swift.example.com/v1",
	Account:    "AUTH_test",
	Container:  "vfs",
	SitePrefix: "site-1",
}

func TestSign_Vectors(t *testing.T) {
	const obj = "/v1/AUTH_test/vfs/site-1/alice/a.txt"

	got, err := Sign([]byte("secret"), DigestSHA256, "GET", 1700000000, obj)
	require.NoError(t, err)
	assert.Equal(t, "c975cf8112aeae404f4e16afdd8a5fbadfe055c7698916ee49012c85c230a165", got)

	got, err = Sign([]byte("secret"), DigestSHA1, "GET", 1700000000, obj)
	require.NoError(t, err)
	assert.Equal(t, "7f8e9349945a38dc4fa02eb84b04f3c9e7d91eb2", got)

	got, err = Sign([]byte("secret"), DigestSHA512, "GET", 1700000000, obj)
	require.NoError(t, err)
	assert.Equal(t, "sha512:wNu7wPqEJfGKmN+qXjGTcaMk1pthGto7BZiFPcMSz/6kY2Ufphp7zt7TsFtoeNm3R3+k+M8zcEDe6t+uA1bHwg==", got)

	_, err = Sign([]byte("secret"), "md5", "GET", 1, obj)
	assert.Error(t, err)
}

func TestTempURLSigner(t *testing.T) {
	s, err := NewTempURLSigner([]byte("secret"), "", testScope)
	require.NoError(t, err)

	sig, err := s.SignURL(context.Background(), SignatureRequest{Method: "get", Path: "alice/a.txt", ExpiresAt: 1700000000})
	require.NoError(t, err)
	assert.Equal(t, "c975cf8112aeae404f4e16afdd8a5fbadfe055c7698916ee49012c85c230a165", sig.Signature)
	assert.Equal(t, DigestSHA256, sig.HMACAlgo)
	assert.Equal(t, int64(1700000000), sig.ExpiresAt)

	sig, err = s.SignURL(context.Background(), SignatureRequest{Method: "PUT", Path: "alice/drafts/", Prefix: true, ExpiresAt: 1700000000})
	require.NoError(t, err)
	assert.Equal(t, "07cae381cb0d075e9137e9d9951ef1d19859d60fb54ff03a27fedddcc561cbd6", sig.Signature)

	_, err = s.SignURL(context.Background(), SignatureRequest{Method: "GET", Path: "../other-site/x"})
	assert.Error(t, err)

	_, err = s.SignURL(context.Background(), SignatureRequest{Method: "GET", Path: ""})
	assert.Error(t, err)

	_, err = NewTempURLSigner(nil, "", testScope)
	assert.ErrorIs(t, err, ErrNoSigningKey)
}

func TestLocalSigner(t *testing.T) {
	k1, err := jwks.GenerateKey()
	require.NoError(t, err)
	k2, err := jwks.GenerateKey()
	require.NoError(t, err)

	s := NewLocalSigner([]jwks.PrivateKey{k1, k2}, k2.KeyID)
	payload := []byte(`{"version":"1","user":{"id":"alice"}}`)

	res, err := s.Sign(context.Background(), payload, "")
	require.NoError(t, err)
	assert.Contains(t, string(res.Key), k2.KeyID)

	set, err := s.FetchKeys(context.Background())
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(res.Token, claims, set.ResolveKey)
	require.NoError(t, err)
	assert.True(t, parsed.Valid)
	assert.Equal(t, k2.KeyID, parsed.Header["kid"])
	assert.Equal(t, "EdDSA", parsed.Header["alg"])
	assert.Equal(t, "1", claims["version"])

	res, err = s.Sign(context.Background(), payload, k1.KeyID)
	require.NoError(t, err)
	assert.Contains(t, string(res.Key), k1.KeyID)

	_, err = s.Sign(context.Background(), payload, "missing")
	assert.ErrorIs(t, err, ErrNoSigningKey)

	_, err = s.Sign(context.Background(), []byte("{"), "")
	assert.Error(t, err)

	_, err = NewLocalSigner(nil, "").Sign(context.Background(), payload, "")
	assert.ErrorIs(t, err, ErrNoSigningKey)
}

func TestRemote(t *testing.T) {
	key, err := jwks.GenerateKey()
	require.NoError(t, err)

	var gotSig SignatureRequest
	var gotTok signTokenRequest
	var gotNonce string
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+RouteSignature, func(w http.ResponseWriter, r *http.Request) {
		gotNonce = r.Header.Get("X-WP-Nonce")
		_ = json.NewDecoder(r.Body).Decode(&gotSig)
		_ = json.NewEncoder(w).Encode(Signature{Signature: "abc", HMACAlgo: "sha256", ExpiresAt: gotSig.ExpiresAt})
	})
	mux.HandleFunc("POST "+RouteSign, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotTok)
		_, _ = w.Write([]byte(`{"token":"h.p.s","key":{"kty":"OKP"}}`))
	})
	mux.HandleFunc("GET "+RouteKeys, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks.PublicSet(key))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	r := NewRemote(ts.URL+"/", ts.Client(), http.Header{"X-WP-Nonce": []string{"n1"}})
	ctx := context.Background()

	sig, err := r.SignURL(ctx, SignatureRequest{Method: "put", Path: "alice/drafts/", Prefix: true, ExpiresAt: 99})
	require.NoError(t, err)
	assert.Equal(t, "abc", sig.Signature)
	assert.Equal(t, "PUT", gotSig.Method)
	assert.Equal(t, "alice/drafts/", gotSig.Path)
	assert.Equal(t, "n1", gotNonce)

	res, err := r.Sign(ctx, []byte(`{"version":"1"}`), "main")
	require.NoError(t, err)
	assert.Equal(t, "h.p.s", res.Token)
	assert.Equal(t, "main", gotTok.KeyID)
	assert.JSONEq(t, `{"version":"1"}`, string(gotTok.Payload))

	set, err := r.FetchKeys(ctx)
	require.NoError(t, err)
	require.Len(t, set.Keys, 1)
	assert.Equal(t, key.KeyID, set.Keys[0].JWK.KeyID)
}

func TestRemote_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, RouteSignature) {
			_, _ = w.Write([]byte(`{"signature":""}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	r := NewRemote(ts.URL, nil, nil)
	_, err := r.SignURL(context.Background(), SignatureRequest{Method: "GET", Path: "x"})
	assert.ErrorContains(t, err, "empty signature")

	_, err = r.FetchKeys(context.Background())
	assert.ErrorContains(t, err, "403")
}

func TestURLKeySource(t *testing.T) {
	key, err := jwks.GenerateKey()
	require.NoError(t, err)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwks.PublicSet(key))
	}))
	defer ts.Close()

	set, err := URLKeySource{URL: ts.URL + "/keys.json"}.FetchKeys(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Keys, 1)
	assert.Equal(t, key.KeyID, set.Keys[0].JWK.KeyID)

	ts.Close()
	_, err = URLKeySource{URL: ts.URL}.FetchKeys(context.Background())
	assert.Error(t, err)
}

type countingSource struct {
	calls int
	set   *jwks.Set
}

func (c *countingSource) FetchKeys(context.Context) (*jwks.Set, error) {
	c.calls++
	return c.set, nil
}

func TestCachedKeys(t *testing.T) {
	src := &countingSource{set: &jwks.Set{}}
	c := NewCachedKeys(src, time.Hour)

	for i := 0; i < 3; i++ {
		_, err := c.FetchKeys(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.calls)

	c.Invalidate()
	_, err := c.FetchKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}
