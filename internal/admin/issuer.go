// Package admin issues visitor tokens and authenticated links on behalf of
// an administrator.
package admin

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/swiftvfs/internal/logging"
	"github.com/dmitrijs2005/swiftvfs/internal/oracle"
	"github.com/dmitrijs2005/swiftvfs/internal/pathx"
	"github.com/dmitrijs2005/swiftvfs/internal/scope"
	"github.com/dmitrijs2005/swiftvfs/internal/swift"
	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

// TokenParam is the query parameter carrying a serialized token in an
// authenticated URL.
const TokenParam = "vfs_token"

// DefaultValidity is the token lifetime used when no expiry is given.
const DefaultValidity = 24 * time.Hour

var (
	ErrKeysDisabled   = errors.New("token signing keys are disabled")
	ErrExpiryMismatch = errors.New("oracle signed methods with different expiries")
)

// KeyConfig controls token signing.
type KeyConfig struct {
	Enabled bool
	// JWKSURL publishes the verification keys.
	JWKSURL string
	// MainKeyID is preferred when signing. Empty lets the signer choose.
	MainKeyID string
}

// KeySource returns a cached source for the keys published at JWKSURL.
func (k KeyConfig) KeySource(client *http.Client, ttl time.Duration) (oracle.KeySource, error) {
	if !k.Enabled {
		return nil, ErrKeysDisabled
	}
	if k.JWKSURL == "" {
		return nil, errors.New("no JWKS URL configured")
	}
	return oracle.NewCachedKeys(oracle.URLKeySource{URL: k.JWKSURL, Client: client}, ttl), nil
}

// Issuer mints visitor tokens.
type Issuer struct {
	cfg              scope.Config
	urls             oracle.SignatureOracle
	signer           token.Signer
	keys             KeyConfig
	defaultPageSpace string
	validity         time.Duration
	storage          *swift.Client
	log              logging.Logger
	now              func() time.Time
}

type Option func(*Issuer)

func WithLogger(l logging.Logger) Option {
	return func(i *Issuer) { i.log = logging.OrNop(l) }
}

// WithDefaultPageSpace sets the page space used when no suffix is given.
func WithDefaultPageSpace(ps string) Option {
	return func(i *Issuer) { i.defaultPageSpace = pathx.Normalize(ps) }
}

// WithValidity sets the lifetime of tokens issued without an explicit expiry.
func WithValidity(d time.Duration) Option {
	return func(i *Issuer) {
		if d > 0 {
			i.validity = d
		}
	}
}

// WithStorage sets the site-wide client used to enumerate users. By default
// one is built on the signature oracle.
func WithStorage(c *swift.Client) Option {
	return func(i *Issuer) { i.storage = c }
}

// New returns an issuer. urls signs storage grants, signer signs tokens.
func New(cfg scope.Config, urls oracle.SignatureOracle, signer token.Signer, keys KeyConfig, opts ...Option) *Issuer {
	i := &Issuer{
		cfg:      cfg,
		urls:     urls,
		signer:   signer,
		keys:     keys,
		validity: DefaultValidity,
		log:      logging.Nop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(i)
	}
	if i.storage == nil {
		i.storage = swift.NewAdmin(cfg, urls, 0, swift.WithLogger(i.log))
	}
	return i
}

// PageSpace returns the page space a token for suffix is scoped to.
func (i *Issuer) PageSpace(suffix string) string {
	if ps := pathx.Normalize(suffix); ps != "" {
		return ps
	}
	return i.defaultPageSpace
}

// GrantPrefix is the site-relative prefix a token for user and suffix is
// signed for, always ending in the delimiter. Without a user id the grant
// sits directly below the site prefix.
func (i *Issuer) GrantPrefix(user token.User, suffix string) string {
	ps := i.PageSpace(suffix)
	if user.ID != "" {
		return scope.DirPrefix(pathx.Join(scope.UserPrefix(user.ID), ps))
	}
	return scope.DirPrefix(ps)
}

// GenerateUserToken signs a prefix grant for every method and assembles
// the token. Signatures are requested concurrently; if any fails no token
// is returned. Nil methods means every method. A zero expiresAt uses the
// issuer's default validity.
//
// The token carries the expiry the oracle signed, which may differ from the
// requested one. Signatures that disagree on it void the token.
func (i *Issuer) GenerateUserToken(ctx context.Context, user token.User, suffix string, expiresAt int64, methods []string) (*token.Token, error) {
	methods = normalizeMethods(methods)
	if expiresAt == 0 {
		expiresAt = i.now().Add(i.validity).Unix()
	}
	prefix := i.GrantPrefix(user, suffix)

	sigs := make([]oracle.Signature, len(methods))
	g, gctx := errgroup.WithContext(ctx)
	for n, m := range methods {
		g.Go(func() error {
			s, err := i.urls.SignURL(gctx, oracle.SignatureRequest{Method: m, Path: prefix, Prefix: true, ExpiresAt: expiresAt})
			if err != nil {
				return fmt.Errorf("sign %s: %w", m, err)
			}
			if s.ExpiresAt == 0 {
				s.ExpiresAt = expiresAt
			}
			sigs[n] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		i.log.Warn(ctx, "token generation failed", "user", user.ID, "error", err)
		return nil, fmt.Errorf("generate token: %w", err)
	}

	signed := sigs[0].ExpiresAt
	signatures := make(map[string]string, len(methods))
	for n, m := range methods {
		if sigs[n].ExpiresAt != signed {
			err := fmt.Errorf("%w: %s expires at %d, %s at %d", ErrExpiryMismatch, methods[0], signed, m, sigs[n].ExpiresAt)
			i.log.Warn(ctx, "token generation failed", "user", user.ID, "error", err)
			return nil, fmt.Errorf("generate token: %w", err)
		}
		signatures[m] = sigs[n].Signature
	}
	if signed != expiresAt {
		i.log.Debug(ctx, "oracle adjusted expiry", "requested", expiresAt, "signed", signed)
	}

	tok, err := token.Build(user, i.PageSpace(suffix), signatures, signed)
	if err != nil {
		return nil, err
	}
	i.log.Info(ctx, "token generated", "user", user.ID, "prefix", prefix, "methods", strings.Join(methods, ","))
	return tok, nil
}

// SerializeUserToken generates a token and signs it with the configured keys.
func (i *Issuer) SerializeUserToken(ctx context.Context, user token.User, suffix string, expiresAt int64, methods []string) (string, *token.Token, error) {
	if !i.keys.Enabled {
		return "", nil, ErrKeysDisabled
	}
	tok, err := i.GenerateUserToken(ctx, user, suffix, expiresAt, methods)
	if err != nil {
		return "", nil, err
	}
	s, err := tok.Serialize(ctx, i.keys.MainKeyID, i.signer)
	if err != nil {
		return "", nil, err
	}
	return s, tok, nil
}

// GenerateAuthenticatedURL returns landing with a freshly issued token as
// its TokenParam query parameter, replacing any token already present.
func (i *Issuer) GenerateAuthenticatedURL(ctx context.Context, user token.User, suffix, landing string, expiresAt int64, methods []string) (string, error) {
	u, err := url.Parse(landing)
	if err != nil {
		return "", fmt.Errorf("landing page: %w", err)
	}
	serialized, _, err := i.SerializeUserToken(ctx, user, suffix, expiresAt, methods)
	if err != nil {
		return "", err
	}
	u.RawQuery = withToken(u.RawQuery, serialized)
	return u.String(), nil
}

// withToken drops every TokenParam pair from rawQuery and appends the new
// one. The other pairs keep their order and encoding.
func withToken(rawQuery, serialized string) string {
	var kept []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		name, _, _ := strings.Cut(pair, "=")
		if n, err := url.QueryUnescape(name); err == nil && n == TokenParam {
			continue
		}
		kept = append(kept, pair)
	}
	kept = append(kept, TokenParam+"="+url.QueryEscape(serialized))
	return strings.Join(kept, "&")
}

// Users enumerates the user directories below the site prefix. Every call
// starts a new listing. progress receives the number of users seen and the
// best known total, which excludes entries that are not user directories.
func (i *Issuer) Users(ctx context.Context, progress swift.ProgressFunc) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var total, users, other int64
		listing := i.storage.List(ctx, "", func(_, t int64) { total = t })
		for item, err := range listing {
			if err != nil {
				yield("", err)
				return
			}
			id, uerr := url.PathUnescape(item.Path)
			if !item.IsDir() || uerr != nil || id == "" {
				other++
				continue
			}
			users++
			if progress != nil {
				progress(users, max(total-other, users))
			}
			if !yield(id, nil) {
				return
			}
		}
	}
}

// Client returns a visitor storage client for a freshly issued token.
func (i *Issuer) Client(ctx context.Context, user token.User, suffix string, opts ...swift.Option) (*swift.Client, error) {
	tok, err := i.GenerateUserToken(ctx, user, suffix, 0, nil)
	if err != nil {
		return nil, err
	}
	return swift.NewVisitor(i.cfg, tok, opts...), nil
}

func normalizeMethods(methods []string) []string {
	if len(methods) == 0 {
		return slices.Clone(scope.Methods)
	}
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" && !slices.Contains(out, m) {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return slices.Clone(scope.Methods)
	}
	return out
}
