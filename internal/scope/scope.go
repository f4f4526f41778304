// Package scope resolves where a request goes and what authorizes it.
//
// A scope is the nesting site prefix → user → page space → sub-path below a
// Swift container. A signature computed for a shorter prefix authorizes every
// key below it, so the order of the nesting is also the order of authority.
package scope

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/swiftvfs/internal/pathx"
	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

// Query parameter names of the Swift tempurl middleware.
const (
	ParamSignature = "temp_url_sig"
	ParamExpires   = "temp_url_expires"
	ParamPrefix    = "temp_url_prefix"
)

// Methods is the full set of HTTP methods the storage understands.
var Methods = []string{"GET", "PUT", "HEAD", "DELETE", "POST", "COPY"}

// Level is a scope granularity.
type Level int

const (
	LevelSite Level = iota
	LevelUser
	LevelPageSpace
)

func (l Level) String() string {
	switch l {
	case LevelSite:
		return "site"
	case LevelUser:
		return "user"
	case LevelPageSpace:
		return "pagespace"
	}
	return "level(" + strconv.Itoa(int(l)) + ")"
}

// Config locates the container and the deployment-wide site prefix.
type Config struct {
	// StorageURL is the Swift endpoint including the API version, e.g. https://swift.example.com/v1.
	StorageURL string
	Account    string
	Container  string
	SitePrefix string
}

// Params is the tempurl query triple for one method.
type Params struct {
	Signature string
	Expires   int64
	// Prefix is set for prefix-scoped grants and empty for single-object grants.
	Prefix string
}

// Values encodes p as query parameters. temp_url_prefix is only present for
// prefix-scoped grants.
func (p Params) Values() url.Values {
	v := url.Values{}
	v.Set(ParamSignature, p.Signature)
	v.Set(ParamExpires, strconv.FormatInt(p.Expires, 10))
	if p.Prefix != "" {
		v.Set(ParamPrefix, p.Prefix)
	}
	return v
}

// Resolver computes URLs, keys and tempurl parameters for one user and page space.
type Resolver struct {
	cfg       Config
	userID    string
	pageSpace string
	tok       *token.Token
}

// New returns a resolver for cfg. With a nil token only LevelSite is meaningful.
func New(cfg Config, tok *token.Token) *Resolver {
	r := &Resolver{cfg: cfg, tok: tok}
	if tok != nil {
		r.userID = tok.User().ID
		r.pageSpace = tok.PageSpace()
	}
	return r
}

// ForUser returns a resolver scoped to an explicit user and page space, used
// by administrators who hold no visitor token.
func ForUser(cfg Config, userID, pageSpace string) *Resolver {
	return &Resolver{cfg: cfg, userID: userID, pageSpace: pageSpace}
}

// Config returns the container configuration.
func (r *Resolver) Config() Config { return r.cfg }

// Token returns the governing token, or nil.
func (r *Resolver) Token() *token.Token { return r.tok }

// UserPrefix is the path segment for userID: the URL-encoded id.
func UserPrefix(userID string) string {
	return url.PathEscape(userID)
}

// Prefix returns the container-relative key prefix of level, without edges.
func (r *Resolver) Prefix(level Level) string {
	p := pathx.Normalize(r.cfg.SitePrefix)
	if level >= LevelUser && r.userID != "" {
		p = pathx.Join(p, UserPrefix(r.userID))
	}
	if level >= LevelPageSpace {
		p = pathx.Join(p, pathx.Normalize(r.pageSpace))
	}
	return pathx.Normalize(p)
}

// ContainerPath is the unescaped URL path of the container, e.g. /v1/AUTH_x/c.
func (r *Resolver) ContainerPath() string {
	u, err := url.Parse(r.cfg.StorageURL)
	base := ""
	if err == nil {
		base = u.Path
	}
	return "/" + pathx.Join(pathx.Normalize(base), pathx.Normalize(r.cfg.Account), pathx.Normalize(r.cfg.Container))
}

// ContainerURL is the absolute URL of the container.
func (r *Resolver) ContainerURL() string {
	return strings.TrimRight(r.cfg.StorageURL, pathx.Delimiter) + "/" +
		pathx.Join(escapeSegments(pathx.Normalize(r.cfg.Account)), escapeSegments(pathx.Normalize(r.cfg.Container)))
}

// BaseURL is the URL of level's prefix inside the container.
func (r *Resolver) BaseURL(level Level) string {
	p := r.Prefix(level)
	if p == "" {
		return r.ContainerURL()
	}
	return r.ContainerURL() + "/" + escapeSegments(p)
}

// Key resolves a path below level into a container-relative storage key.
// Paths that climb above level are rejected.
func (r *Resolver) Key(level Level, p string) (string, error) {
	clean, err := pathx.Clean(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}
	return pathx.Normalize(pathx.Join(r.Prefix(level), clean)), nil
}

// FileURL is the object URL of path below level, without query parameters.
func (r *Resolver) FileURL(level Level, p string) (string, error) {
	key, err := r.Key(level, p)
	if err != nil {
		return "", err
	}
	return r.KeyURL(key), nil
}

// KeyURL is the object URL of a container-relative key.
func (r *Resolver) KeyURL(key string) string {
	return r.ContainerURL() + "/" + escapeSegments(pathx.Normalize(key))
}

// ObjectPath is the absolute URL path of key, the string tempurl signatures cover.
func (r *Resolver) ObjectPath(key string) string {
	return r.ContainerPath() + "/" + pathx.Normalize(key)
}

// TokenParams returns the tempurl parameters the governing token grants for
// method. The boolean is false when the token carries no signature for
// method; callers turn that into an authorization failure.
func (r *Resolver) TokenParams(method string) (Params, bool) {
	if r.tok == nil {
		return Params{}, false
	}
	sig, ok := r.tok.Signature(method)
	if !ok {
		return Params{}, false
	}
	return Params{
		Signature: sig,
		Expires:   r.tok.ExpiresAt(),
		Prefix:    DirPrefix(r.Prefix(LevelPageSpace)),
	}, true
}

// DirPrefix turns a key prefix into the directory form tempurl grants are
// issued for: normalized with one trailing delimiter, or "" for the root.
func DirPrefix(p string) string {
	p = pathx.Normalize(p)
	if p == "" {
		return ""
	}
	return p + pathx.Delimiter
}

// EntryPath converts a listing entry into a path relative to prefix, the
// caller's scope. The absolute storage key never leaves this function.
func EntryPath(prefix string, e Entry) string {
	return pathx.RelativeTo(prefix, e.Key())
}

func escapeSegments(p string) string {
	if p == "" {
		return ""
	}
	parts := strings.Split(p, pathx.Delimiter)
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, pathx.Delimiter)
}
