// Package swift is a scoped client for an OpenStack Swift container
// authorized by temporary URL signatures.
//
// A Client works below one scope level. Paths given to and returned by it
// are relative to that level; storage keys outside it are never exposed.
// How requests are authorized and how failures are reported depends on the
// caller's role and is supplied as an Authorizer and an Interceptor.
package swift

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/logging"
	"github.com/dmitrijs2005/swiftvfs/internal/oracle"
	"github.com/dmitrijs2005/swiftvfs/internal/scope"
	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

// PageLimit is the number of listing entries requested per page.
const PageLimit = 1000

const maxErrorBody = 64 << 10

// Client executes storage requests below one scope level.
type Client struct {
	httpClient  *http.Client
	resolver    *scope.Resolver
	level       scope.Level
	authorizer  Authorizer
	interceptor Interceptor
	log         logging.Logger
	pageLimit   int
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithLogger(l logging.Logger) Option {
	return func(cl *Client) { cl.log = logging.OrNop(l) }
}

// WithPageLimit overrides PageLimit.
func WithPageLimit(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.pageLimit = n
		}
	}
}

// New returns a client working below level of resolver.
func New(resolver *scope.Resolver, level scope.Level, a Authorizer, i Interceptor, opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		resolver:    resolver,
		level:       level,
		authorizer:  a,
		interceptor: i,
		log:         logging.Nop(),
		pageLimit:   PageLimit,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewVisitor returns a client for the holder of tok, scoped to its page space.
func NewVisitor(cfg scope.Config, tok *token.Token, opts ...Option) *Client {
	r := scope.New(cfg, tok)
	return New(r, scope.LevelPageSpace, NewTokenAuthorizer(r), VisitorInterceptor(tok), opts...)
}

// NewAdmin returns a site-wide client whose requests are signed by o.
func NewAdmin(cfg scope.Config, o oracle.SignatureOracle, ttl time.Duration, opts ...Option) *Client {
	r := scope.New(cfg, nil)
	return New(r, scope.LevelSite, NewOracleAuthorizer(o, r, ttl), AdminInterceptor(), opts...)
}

// Resolver returns the scope resolver of c.
func (c *Client) Resolver() *scope.Resolver { return c.resolver }

// Level returns the scope level c works below.
func (c *Client) Level() scope.Level { return c.level }

// Prefix is the container-relative key prefix of c's scope.
func (c *Client) Prefix() string { return c.resolver.Prefix(c.level) }

// ObjectInfo is the metadata of a stored object.
type ObjectInfo struct {
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
	InputName    string
}

func objectInfo(h http.Header, size int64) ObjectInfo {
	info := ObjectInfo{
		Size:        size,
		ContentType: h.Get("Content-Type"),
		ETag:        h.Get("Etag"),
	}
	if size < 0 {
		info.Size, _ = strconv.ParseInt(h.Get("Content-Length"), 10, 64)
	}
	if t, err := http.ParseTime(h.Get("Last-Modified")); err == nil {
		info.LastModified = t
	}
	if n := h.Get(headerInputName); n != "" {
		if un, err := url.PathUnescape(n); err == nil {
			n = un
		}
		info.InputName = n
	}
	return info
}

// SignedURL returns a URL granting method on path until expiresAt. A zero
// expiresAt uses the authorizer's default.
func (c *Client) SignedURL(ctx context.Context, method, path string, expiresAt int64) (string, error) {
	key, err := c.resolver.Key(c.level, path)
	if err != nil {
		return "", err
	}
	p, err := c.authorizer.Authorize(ctx, Request{Method: method, Key: key, ExpiresAt: expiresAt})
	if err != nil {
		return "", err
	}
	return c.resolver.KeyURL(key) + "?" + p.Values().Encode(), nil
}

type call struct {
	method string
	key    string
	// listing calls go to the container URL with a directory grant
	listing bool
	query   url.Values
	header  http.Header
	body    io.Reader
	size    int64
}

// do executes cl and returns the response for 2xx statuses. The caller
// closes the body.
func (c *Client) do(ctx context.Context, cl call) (*http.Response, error) {
	params, err := c.authorizer.Authorize(ctx, Request{Method: cl.method, Key: cl.key, Dir: cl.listing})
	if err != nil {
		return nil, err
	}

	q := params.Values()
	for k, vs := range cl.query {
		q[k] = vs
	}

	target := c.resolver.KeyURL(cl.key)
	if cl.listing {
		target = c.resolver.ContainerURL()
	}
	target += "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, cl.method, target, cl.body)
	if err != nil {
		return nil, err
	}
	for k, vs := range cl.header {
		req.Header[k] = vs
	}
	if cl.body != nil {
		req.ContentLength = cl.size
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.log.Warn(ctx, "swift request failed", "method", cl.method, "error", err)
		return nil, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Debug(ctx, "swift request rejected", "method", cl.method, "status", resp.StatusCode)
		return nil, c.interceptor.Intercept(&HTTPStatusError{Status: resp.StatusCode, Body: string(b)})
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// Head returns the metadata of path, asking for the newest replica.
func (c *Client) Head(ctx context.Context, path string) (ObjectInfo, error) {
	key, err := c.resolver.Key(c.level, path)
	if err != nil {
		return ObjectInfo{}, err
	}
	resp, err := c.do(ctx, call{method: http.MethodHead, key: key, header: http.Header{"X-Newest": {"true"}}})
	if err != nil {
		return ObjectInfo{}, err
	}
	drain(resp)
	return objectInfo(resp.Header, -1), nil
}

// Read opens path for streaming. The caller closes the reader.
func (c *Client) Read(ctx context.Context, path string) (io.ReadCloser, ObjectInfo, error) {
	key, err := c.resolver.Key(c.level, path)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	resp, err := c.do(ctx, call{method: http.MethodGet, key: key, header: http.Header{"X-Newest": {"true"}}})
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	return resp.Body, objectInfo(resp.Header, resp.ContentLength), nil
}

// Get reads all of path.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	rc, _, err := c.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Err: err}
	}
	return b, nil
}

// Delete removes path.
func (c *Client) Delete(ctx context.Context, path string) error {
	key, err := c.resolver.Key(c.level, path)
	if err != nil {
		return err
	}
	if key == "" || key == c.Prefix() {
		return errors.New("swift: refusing to delete the scope root")
	}
	resp, err := c.do(ctx, call{method: http.MethodDelete, key: key})
	if err != nil {
		return err
	}
	drain(resp)
	c.log.Info(ctx, "object deleted", "path", path)
	return nil
}
