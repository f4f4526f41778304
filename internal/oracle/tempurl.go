package oracle

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/dmitrijs2005/swiftvfs/internal/pathx"
	"github.com/dmitrijs2005/swiftvfs/internal/scope"
)

// Digest names accepted by the Swift tempurl middleware.
const (
	DigestSHA1   = "sha1"
	DigestSHA256 = "sha256"
	DigestSHA512 = "sha512"
)

// TempURLSigner computes Swift tempurl signatures from the account or
// container key. It implements SignatureOracle.
type TempURLSigner struct {
	key      []byte
	digest   string
	resolver *scope.Resolver
}

// NewTempURLSigner returns a signer for the container described by cfg.
// An empty digest selects sha256.
func NewTempURLSigner(key []byte, digest string, cfg scope.Config) (*TempURLSigner, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("tempurl: %w", ErrNoSigningKey)
	}
	if digest == "" {
		digest = DigestSHA256
	}
	if _, err := newHash(digest); err != nil {
		return nil, err
	}
	return &TempURLSigner{key: key, digest: digest, resolver: scope.New(cfg, nil)}, nil
}

// SignURL signs req. Prefix grants sign "prefix:<container path>/<prefix>",
// single-object grants sign the object path.
func (s *TempURLSigner) SignURL(_ context.Context, req SignatureRequest) (Signature, error) {
	key, err := s.resolver.Key(scope.LevelSite, req.Path)
	if err != nil {
		return Signature{}, err
	}

	var path string
	switch {
	case req.Prefix:
		path = "prefix:" + s.resolver.ContainerPath() + "/" + scope.DirPrefix(key)
	case pathx.Normalize(req.Path) == "":
		return Signature{}, fmt.Errorf("tempurl: empty object path")
	default:
		path = s.resolver.ObjectPath(key)
	}

	sig, err := Sign(s.key, s.digest, strings.ToUpper(req.Method), req.ExpiresAt, path)
	if err != nil {
		return Signature{}, err
	}
	return Signature{Signature: sig, HMACAlgo: s.digest, ExpiresAt: req.ExpiresAt}, nil
}

// Sign computes a tempurl signature over "method\nexpires\npath". sha1 and
// sha256 signatures are hex encoded; sha512 uses the "sha512:<base64>" form.
func Sign(key []byte, digest, method string, expires int64, path string) (string, error) {
	h, err := newHash(digest)
	if err != nil {
		return "", err
	}
	mac := hmac.New(h, key)
	fmt.Fprintf(mac, "%s\n%d\n%s", method, expires, path)
	sum := mac.Sum(nil)

	if digest == DigestSHA512 {
		return DigestSHA512 + ":" + base64.StdEncoding.EncodeToString(sum), nil
	}
	return hex.EncodeToString(sum), nil
}

func newHash(digest string) (func() hash.Hash, error) {
	switch digest {
	case DigestSHA1:
		return sha1.New, nil
	case DigestSHA256:
		return sha256.New, nil
	case DigestSHA512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("tempurl: unsupported digest %q", digest)
}
