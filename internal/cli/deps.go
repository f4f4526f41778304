package cli

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/admin"
	"github.com/dmitrijs2005/swiftvfs/internal/filex"
	"github.com/dmitrijs2005/swiftvfs/internal/jwks"
	"github.com/dmitrijs2005/swiftvfs/internal/oracle"
	"github.com/dmitrijs2005/swiftvfs/internal/repositories"
	"github.com/dmitrijs2005/swiftvfs/internal/state"
	"github.com/dmitrijs2005/swiftvfs/internal/swift"
	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

const keyCacheTTL = time.Minute

func (a *App) remote() *oracle.Remote {
	h := http.Header{}
	if a.cfg.OracleToken != "" {
		h.Set("Authorization", "Bearer "+a.cfg.OracleToken)
	}
	return oracle.NewRemote(a.cfg.OracleURL, a.httpClient, h)
}

// signatureOracle prefers the host endpoints. Without them the tempurl key
// comes from the configuration or, failing that, from the terminal.
func (a *App) signatureOracle() (oracle.SignatureOracle, error) {
	if a.cfg.OracleURL != "" {
		return a.remote(), nil
	}
	key := []byte(a.cfg.TempURLKey)
	if len(key) == 0 {
		var err error
		if key, err = GetSecret(a.errOut, "Temp URL key: "); err != nil {
			return nil, fmt.Errorf("read temp URL key: %w", err)
		}
	}
	return oracle.NewTempURLSigner(key, a.cfg.TempURLDigest, a.cfg.Scope())
}

// tokenSigner returns the token signer and the source of its public keys.
func (a *App) tokenSigner() (token.Signer, oracle.KeySource, error) {
	if a.cfg.OracleURL != "" {
		r := a.remote()
		return r, r, nil
	}
	keys, err := jwks.LoadPrivateFile(a.cfg.PrivateKeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load signing keys: %w", err)
	}
	s := oracle.NewLocalSigner(keys, a.cfg.MainKeyID)
	return s, s, nil
}

// keySource returns the published verification keys: the JWKS URL when
// configured, the signer's keys otherwise. The source is kept for the
// lifetime of a.
func (a *App) keySource() (oracle.KeySource, error) {
	if a.keys != nil {
		return a.keys, nil
	}
	var (
		src oracle.KeySource
		err error
	)
	if a.cfg.JWKSEnabled && a.cfg.JWKSURL != "" {
		src, err = a.cfg.Keys().KeySource(a.httpClient, keyCacheTTL)
	} else {
		_, src, err = a.tokenSigner()
	}
	if err != nil {
		return nil, err
	}
	a.keys = src
	return src, nil
}

func (a *App) clientOptions() []swift.Option {
	return []swift.Option{swift.WithLogger(a.log), swift.WithHTTPClient(a.httpClient)}
}

// issuer builds an Issuer. The token signer is loaded only when sign is set
// and signed tokens are enabled.
func (a *App) issuer(sign bool) (*admin.Issuer, error) {
	urls, err := a.signatureOracle()
	if err != nil {
		return nil, err
	}
	var signer token.Signer
	if sign && a.cfg.JWKSEnabled {
		if signer, _, err = a.tokenSigner(); err != nil {
			return nil, err
		}
	}
	storage := swift.NewAdmin(a.cfg.Scope(), urls, a.cfg.SignatureTTL, a.clientOptions()...)
	return admin.New(a.cfg.Scope(), urls, signer, a.cfg.Keys(),
		admin.WithLogger(a.log),
		admin.WithDefaultPageSpace(a.cfg.DefaultPageSpace),
		admin.WithValidity(a.cfg.TokenValidity),
		admin.WithStorage(storage),
	), nil
}

// storage returns a visitor client for id when it selects a scope or asks
// for the saved token, and the site-wide admin client otherwise. The token
// is nil for the admin client.
func (a *App) storage(ctx context.Context, id *identity) (*swift.Client, *token.Token, error) {
	if id.saved {
		if id.set() {
			return nil, nil, fmt.Errorf("%w: -saved excludes -user and -suffix", ErrUsage)
		}
		_, tok, err := a.savedToken(ctx)
		if err != nil {
			return nil, nil, err
		}
		if tok.Expired() {
			return nil, nil, fmt.Errorf("%w for %q, issue a new one with token -save", errSavedTokenExpired, tok.User().ID)
		}
		return swift.NewVisitor(a.cfg.Scope(), tok, a.clientOptions()...), tok, nil
	}
	if !id.set() {
		urls, err := a.signatureOracle()
		if err != nil {
			return nil, nil, err
		}
		return swift.NewAdmin(a.cfg.Scope(), urls, a.cfg.SignatureTTL, a.clientOptions()...), nil, nil
	}
	iss, err := a.issuer(false)
	if err != nil {
		return nil, nil, err
	}
	tok, err := iss.GenerateUserToken(ctx, id.user(), id.suffix, 0, nil)
	if err != nil {
		return nil, nil, err
	}
	return swift.NewVisitor(a.cfg.Scope(), tok, a.clientOptions()...), tok, nil
}

func (a *App) openStore(ctx context.Context) (*state.Store, func(), error) {
	if !strings.HasPrefix(a.cfg.StateDSN, "file:") && !strings.HasPrefix(a.cfg.StateDSN, ":memory:") {
		if _, err := filex.EnsureParentDir(a.cfg.StateDSN); err != nil {
			return nil, nil, err
		}
	}
	repos, err := repositories.Open(ctx, a.cfg.StateDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open state database: %w", err)
	}
	return state.NewStore(repos), func() { _ = repos.Close() }, nil
}

// savedToken returns the token kept by "token -save". Having none is a
// usage error.
func (a *App) savedToken(ctx context.Context) (string, *token.Token, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return "", nil, err
	}
	defer closeStore()
	serialized, tok, err := store.LoadToken(ctx)
	if err != nil {
		return "", nil, err
	}
	if tok == nil {
		return "", nil, fmt.Errorf("%w: %w", ErrUsage, errNoSavedToken)
	}
	return serialized, tok, nil
}

// workspace opens the state of a visitor scope backed by the local cache.
// Without scope flags the saved token selects the scope.
func (a *App) workspace(ctx context.Context, id *identity) (*state.Workspace, func(), error) {
	if !id.set() {
		id.saved = true
	}
	client, tok, err := a.storage(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	st := state.New(a.cfg.Scope())
	st.SetToken(tok)
	ws, err := state.Open(ctx, st, client, state.WithStore(store), state.WithLogger(a.log))
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return ws, closeStore, nil
}
