package swift

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/oracle"
	"github.com/dmitrijs2005/swiftvfs/internal/pathx"
	"github.com/dmitrijs2005/swiftvfs/internal/scope"
	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

// Request describes what a storage request needs credentials for.
type Request struct {
	Method string
	// Key is the container-relative storage key.
	Key string
	// Dir asks for a grant covering every key below Key.
	Dir bool
	// ExpiresAt overrides the default expiry when non-zero. Only
	// oracle-backed authorizers honour it.
	ExpiresAt int64
}

// Authorizer produces the tempurl parameters for a request.
type Authorizer interface {
	Authorize(ctx context.Context, req Request) (scope.Params, error)
}

// Interceptor maps a failed response to the error returned to the caller.
type Interceptor interface {
	Intercept(err *HTTPStatusError) error
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(err *HTTPStatusError) error

func (f InterceptorFunc) Intercept(err *HTTPStatusError) error { return f(err) }

// TokenAuthorizer authorizes with the signatures carried by a visitor token.
// Every grant is the token's page-space prefix.
type TokenAuthorizer struct {
	resolver *scope.Resolver
}

func NewTokenAuthorizer(resolver *scope.Resolver) *TokenAuthorizer {
	return &TokenAuthorizer{resolver: resolver}
}

func (a *TokenAuthorizer) Authorize(_ context.Context, req Request) (scope.Params, error) {
	p, ok := a.resolver.TokenParams(req.Method)
	if !ok {
		return scope.Params{}, &AuthenticationError{Err: fmt.Errorf("%w %s", ErrNoSignature, strings.ToUpper(req.Method))}
	}
	return p, nil
}

// OracleAuthorizer asks a signature oracle for a fresh signature per request.
type OracleAuthorizer struct {
	oracle   oracle.SignatureOracle
	resolver *scope.Resolver
	ttl      time.Duration
	now      func() time.Time
}

// NewOracleAuthorizer returns an authorizer whose signatures are valid for ttl.
func NewOracleAuthorizer(o oracle.SignatureOracle, resolver *scope.Resolver, ttl time.Duration) *OracleAuthorizer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OracleAuthorizer{oracle: o, resolver: resolver, ttl: ttl, now: time.Now}
}

func (a *OracleAuthorizer) Authorize(ctx context.Context, req Request) (scope.Params, error) {
	expires := req.ExpiresAt
	if expires == 0 {
		expires = a.now().Add(a.ttl).Unix()
	}

	// oracles take paths relative to the site prefix
	rel := pathx.RelativeTo(a.resolver.Prefix(scope.LevelSite), req.Key)
	sr := oracle.SignatureRequest{Method: strings.ToUpper(req.Method), Path: rel, Prefix: req.Dir, ExpiresAt: expires}
	if req.Dir {
		sr.Path = scope.DirPrefix(rel)
	}

	sig, err := a.oracle.SignURL(ctx, sr)
	if err != nil {
		return scope.Params{}, fmt.Errorf("authorize %s %s: %w", sr.Method, sr.Path, err)
	}

	p := scope.Params{Signature: sig.Signature, Expires: sig.ExpiresAt}
	if p.Expires == 0 {
		p.Expires = expires
	}
	if req.Dir {
		p.Prefix = scope.DirPrefix(req.Key)
	}
	return p, nil
}

// VisitorInterceptor tells an expired token apart from a rejected one.
func VisitorInterceptor(tok *token.Token) Interceptor {
	return InterceptorFunc(func(err *HTTPStatusError) error {
		if err.Status != http.StatusUnauthorized {
			return err
		}
		if tok != nil && tok.Expired() {
			at, _ := tok.ExpiredAt()
			return &TokenExpiredError{ExpiredAt: at, Err: err}
		}
		return &AuthenticationError{Err: err}
	})
}

// AdminInterceptor treats 401 and 403 as authentication failures.
func AdminInterceptor() Interceptor {
	return InterceptorFunc(func(err *HTTPStatusError) error {
		switch err.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &AuthenticationError{Err: err}
		}
		return err
	})
}
