package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/jwks"
	"github.com/dmitrijs2005/swiftvfs/internal/netx"
	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

// REST routes served by the host.
const (
	RouteSignature = "/vfs/v1/swift/signature"
	RouteSign      = "/vfs/v1/jwks/sign"
	RouteKeys      = "/vfs/v1/jwks"
)

// Remote is the client of the host's signing endpoints. It implements
// SignatureOracle, token.Signer and KeySource.
type Remote struct {
	baseURL string
	client  *http.Client
	header  http.Header
}

// NewRemote returns a client for the host at baseURL. header is sent with
// every request, typically an Authorization or nonce header.
func NewRemote(baseURL string, client *http.Client, header http.Header) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Remote{baseURL: strings.TrimRight(baseURL, "/"), client: client, header: header}
}

// SignURL implements SignatureOracle.
func (r *Remote) SignURL(ctx context.Context, req SignatureRequest) (Signature, error) {
	req.Method = strings.ToUpper(req.Method)

	var out Signature
	if err := netx.DoJSON(ctx, r.client, http.MethodPost, r.baseURL+RouteSignature, r.header, req, &out); err != nil {
		return Signature{}, fmt.Errorf("sign %s %s: %w", req.Method, req.Path, err)
	}
	if out.Signature == "" {
		return Signature{}, fmt.Errorf("sign %s %s: empty signature", req.Method, req.Path)
	}
	return out, nil
}

type signTokenRequest struct {
	Payload json.RawMessage `json:"payload"`
	KeyID   string          `json:"kid,omitempty"`
}

// Sign implements token.Signer.
func (r *Remote) Sign(ctx context.Context, payload []byte, keyID string) (token.SignResult, error) {
	var out token.SignResult
	in := signTokenRequest{Payload: payload, KeyID: keyID}
	if err := netx.DoJSON(ctx, r.client, http.MethodPost, r.baseURL+RouteSign, r.header, in, &out); err != nil {
		return token.SignResult{}, fmt.Errorf("sign token: %w", err)
	}
	return out, nil
}

// FetchKeys implements KeySource.
func (r *Remote) FetchKeys(ctx context.Context) (*jwks.Set, error) {
	var raw json.RawMessage
	if err := netx.DoJSON(ctx, r.client, http.MethodGet, r.baseURL+RouteKeys, r.header, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch keys: %w", err)
	}
	return jwks.Parse(raw)
}

// URLKeySource fetches a JSON Web Key Set from an absolute URL.
type URLKeySource struct {
	URL    string
	Client *http.Client
	Header http.Header
}

// FetchKeys implements KeySource.
func (u URLKeySource) FetchKeys(ctx context.Context) (*jwks.Set, error) {
	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	var raw json.RawMessage
	if err := netx.DoJSON(ctx, client, http.MethodGet, u.URL, u.Header, nil, &raw); err != nil {
		return nil, fmt.Errorf("fetch keys from %s: %w", u.URL, err)
	}
	return jwks.Parse(raw)
}

// CachedKeys memoizes a KeySource for ttl. Failed fetches are not cached.
type CachedKeys struct {
	source KeySource
	ttl    time.Duration

	mu      sync.Mutex
	set     *jwks.Set
	fetched time.Time
}

// NewCachedKeys wraps source.
func NewCachedKeys(source KeySource, ttl time.Duration) *CachedKeys {
	return &CachedKeys{source: source, ttl: ttl}
}

// FetchKeys implements KeySource.
func (c *CachedKeys) FetchKeys(ctx context.Context) (*jwks.Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.set != nil && time.Since(c.fetched) < c.ttl {
		return c.set, nil
	}
	set, err := c.source.FetchKeys(ctx)
	if err != nil {
		return nil, err
	}
	c.set, c.fetched = set, time.Now()
	return set, nil
}

// Invalidate drops the cached set, e.g. after a key rotation was observed.
func (c *CachedKeys) Invalidate() {
	c.mu.Lock()
	c.set = nil
	c.mu.Unlock()
}
