package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/config"
	"github.com/dmitrijs2005/swiftvfs/internal/flagx"
	"github.com/dmitrijs2005/swiftvfs/internal/logging"
	"github.com/dmitrijs2005/swiftvfs/internal/oracle"
)

var (
	ErrUsage             = errors.New("usage")
	errRejected          = errors.New("token rejected")
	errNoSavedToken      = errors.New("no saved token")
	errSavedTokenExpired = errors.New("saved token expired")
)

// App runs one swiftvfs subcommand.
type App struct {
	cfg        *config.Config
	out        io.Writer
	errOut     io.Writer
	stdin      io.Reader
	log        logging.Logger
	httpClient *http.Client
	now        func() time.Time

	// keys caches the verification key source across runs of a.
	keys oracle.KeySource
}

type Option func(*App)

// WithIO replaces stdin, stdout and stderr.
func WithIO(in io.Reader, out, errOut io.Writer) Option {
	return func(a *App) {
		a.stdin, a.out, a.errOut = in, out, errOut
	}
}

func WithLogger(l logging.Logger) Option {
	return func(a *App) { a.log = logging.OrNop(l) }
}

func WithHTTPClient(c *http.Client) Option {
	return func(a *App) { a.httpClient = c }
}

// NewApp returns an App for cfg writing to the process streams.
func NewApp(cfg *config.Config, opts ...Option) *App {
	a := &App{
		cfg:        cfg,
		out:        os.Stdout,
		errOut:     os.Stderr,
		stdin:      os.Stdin,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
	a.log = logging.New(a.errOut, cfg.Level())
	for _, o := range opts {
		o(a)
	}
	return a
}

type command struct {
	name  string
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

var commands = []command{
	{"keygen", "keygen [-n count] [-out file] [-force]", (*App).keygen},
	{"token", "token [-user id] [-suffix dir] [-expires d] [-methods GET,PUT] [-save] | token -forget", (*App).token},
	{"url", "url -landing URL [-user id] [-suffix dir] [-expires d] [-methods GET]", (*App).url},
	{"users", "users", (*App).users},
	{"verify", "verify [token|-]", (*App).verify},
	{"sign", "sign [-method GET] [-expires d] <path>", (*App).sign},
	{"ls", "ls [-deep] [-user id] [-suffix dir] [-saved] [prefix]", (*App).ls},
	{"sync", "sync [-user id] [-suffix dir] [-saved]", (*App).sync},
	{"put", "put [-user id] [-suffix dir] [-saved] [-type mime] <local file> <remote path>", (*App).put},
	{"rm", "rm [-user id] [-suffix dir] [-saved] <remote path>...", (*App).rm},
	{"zip", "zip [-user id] [-suffix dir] [-saved] [-o file] [-export] [-placeholders] <path>...", (*App).zip},
}

// Run executes the subcommand named by args[0] with the remaining args.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}
	for _, c := range commands {
		if c.name == args[0] {
			err := c.run(a, ctx, args[1:])
			if errors.Is(err, ErrUsage) {
				fmt.Fprintln(a.errOut, "Usage: swiftvfs", c.usage)
			}
			return err
		}
	}
	fmt.Fprintln(a.errOut, "Unknown command:", args[0])
	a.usage()
	return ErrUsage
}

func (a *App) usage() {
	fmt.Fprintln(a.errOut, "Usage: swiftvfs [-c config.json] [global flags] <command> [flags]")
	fmt.Fprintln(a.errOut, "Commands:")
	for _, c := range commands {
		fmt.Fprintln(a.errOut, "  "+c.usage)
	}
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// parseArgs parses the subcommand flags in args and returns the positional
// arguments. Global flags were consumed earlier, so any flag left over is
// unknown.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	rest, err := flagx.Parse(fs, args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	for _, arg := range rest {
		if strings.HasPrefix(arg, "-") && arg != "-" {
			return nil, fmt.Errorf("%w: unknown flag %s", ErrUsage, arg)
		}
	}
	return rest, nil
}
