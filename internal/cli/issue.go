package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/swiftvfs/internal/filex"
	"github.com/dmitrijs2005/swiftvfs/internal/jwks"
	"github.com/dmitrijs2005/swiftvfs/internal/oracle"
	"github.com/dmitrijs2005/swiftvfs/internal/verify"
)

func (a *App) keygen(ctx context.Context, args []string) error {
	fs := a.flagSet("keygen")
	n := fs.Int("n", 1, "number of keys")
	out := fs.String("out", a.cfg.PrivateKeyFile, "private key file")
	force := fs.Bool("force", false, "overwrite an existing key file")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *n < 1 || *out == "" {
		return ErrUsage
	}
	if _, err := os.Stat(*out); err == nil && !*force {
		return fmt.Errorf("%s exists, use -force to replace it", *out)
	}

	keys := make([]jwks.PrivateKey, 0, *n)
	for range *n {
		k, err := jwks.GenerateKey()
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}

	data, err := jwks.MarshalPrivate(keys...)
	if err != nil {
		return err
	}
	if err := filex.WriteFile(*out, data, 0o600); err != nil {
		return err
	}
	a.log.Info(ctx, "signing keys written", "file", *out, "count", len(keys))

	public, err := json.MarshalIndent(jwks.PublicSet(keys...), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(public))
	return nil
}

func (a *App) token(ctx context.Context, args []string) error {
	fs := a.flagSet("token")
	id := addIdentity(fs)
	lifetime := fs.Duration("expires", 0, "token lifetime, default from config")
	methods := fs.String("methods", "", "comma separated methods, default all")
	save := fs.Bool("save", false, "remember the token in the state database")
	forget := fs.Bool("forget", false, "drop the saved token and issue nothing")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *forget {
		if *save {
			return fmt.Errorf("%w: -forget excludes -save", ErrUsage)
		}
		return a.forget(ctx)
	}

	iss, err := a.issuer(true)
	if err != nil {
		return err
	}
	exp := expiresAt(a.now(), *lifetime)

	if !a.cfg.JWKSEnabled {
		tok, err := iss.GenerateUserToken(ctx, id.user(), id.suffix, exp, splitMethods(*methods))
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(tok, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, string(data))
		return nil
	}

	serialized, tok, err := iss.SerializeUserToken(ctx, id.user(), id.suffix, exp, splitMethods(*methods))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, serialized)

	if *save {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		if err := store.SaveToken(ctx, serialized, tok); err != nil {
			return err
		}
		a.log.Info(ctx, "token saved", "user", tok.User().ID, "page_space", tok.PageSpace())
	}
	return nil
}

func (a *App) forget(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := store.Forget(ctx); err != nil {
		return err
	}
	a.log.Info(ctx, "saved token dropped")
	return nil
}

func (a *App) url(ctx context.Context, args []string) error {
	fs := a.flagSet("url")
	id := addIdentity(fs)
	landing := fs.String("landing", "", "landing page URL")
	lifetime := fs.Duration("expires", 0, "token lifetime, default from config")
	methods := fs.String("methods", "", "comma separated methods, default all")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	if *landing == "" {
		return ErrUsage
	}

	iss, err := a.issuer(true)
	if err != nil {
		return err
	}
	u, err := iss.GenerateAuthenticatedURL(ctx, id.user(), id.suffix, *landing, expiresAt(a.now(), *lifetime), splitMethods(*methods))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, u)
	return nil
}

func (a *App) users(ctx context.Context, args []string) error {
	fs := a.flagSet("users")
	if _, err := parseArgs(fs, args); err != nil {
		return err
	}
	iss, err := a.issuer(false)
	if err != nil {
		return err
	}
	progress := func(done, total int64) {
		a.log.Debug(ctx, "listing users", "done", done, "total", total)
	}
	for user, err := range iss.Users(ctx, progress) {
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, user)
	}
	return nil
}

func (a *App) verify(ctx context.Context, args []string) error {
	fs := a.flagSet("verify")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	var serialized string
	switch len(rest) {
	case 0:
		if serialized, _, err = a.savedToken(ctx); err != nil {
			return err
		}
	case 1:
		serialized = rest[0]
		if serialized == "-" {
			if serialized, err = ReadLine(a.stdin); err != nil {
				return err
			}
		}
	default:
		return ErrUsage
	}

	src, err := a.keySource()
	if err != nil {
		return err
	}
	keys, err := src.FetchKeys(ctx)
	if err != nil {
		return err
	}
	res, verr := verify.VerifyToken(serialized, keys)
	if cat, _ := verify.Categorize(verr); cat == verify.CategoryUnknownKey {
		if keys, err = a.refreshKeys(ctx, src); err != nil {
			return err
		}
		if keys != nil {
			a.log.Debug(ctx, "unknown signing key, keys refetched", "kid", res.KeyID)
			res, verr = verify.VerifyToken(serialized, keys)
		}
	}
	if res != nil {
		fmt.Fprintf(a.out, "validity:  %s\n", res.Validity)
		if res.Algorithm != "" {
			fmt.Fprintf(a.out, "algorithm: %s\n", res.Algorithm)
		}
		if res.KeyID != "" {
			fmt.Fprintf(a.out, "key id:    %s\n", res.KeyID)
		}
		if res.Payload != nil {
			data, err := json.MarshalIndent(res.Payload, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(data))
			if res.Payload.Expired() {
				fmt.Fprintln(a.out, "The token has expired.")
			}
		}
	}
	fmt.Fprintln(a.out, verify.Describe(verr))
	if verr != nil {
		return errors.Join(errRejected, verr)
	}
	return nil
}

// refreshKeys drops a cached key set and fetches it again. It returns nil
// for sources that do not cache.
func (a *App) refreshKeys(ctx context.Context, src oracle.KeySource) (*jwks.Set, error) {
	cached, ok := src.(*oracle.CachedKeys)
	if !ok {
		return nil, nil
	}
	cached.Invalidate()
	return cached.FetchKeys(ctx)
}

func (a *App) sign(ctx context.Context, args []string) error {
	fs := a.flagSet("sign")
	method := fs.String("method", "GET", "method the URL grants")
	lifetime := fs.Duration("expires", 0, "URL lifetime, default from config")
	rest, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 || strings.TrimSpace(*method) == "" {
		return ErrUsage
	}

	c, _, err := a.storage(ctx, &identity{})
	if err != nil {
		return err
	}
	u, err := c.SignedURL(ctx, strings.ToUpper(strings.TrimSpace(*method)), rest[0], expiresAt(a.now(), *lifetime))
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, u)
	return nil
}
