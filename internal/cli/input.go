package cli

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/dmitrijs2005/swiftvfs/internal/token"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// GetSecret prints prompt to w and reads a line from the terminal without
// echo. A newline is printed after the read.
func GetSecret(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	secret, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	if len(secret) == 0 {
		return nil, errors.New("empty input")
	}
	return secret, nil
}

// ReadLine reads a single trimmed line from r. A final line without a
// trailing newline is accepted.
func ReadLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// identity holds the flags that select a visitor scope.
type identity struct {
	id     string
	email  string
	name   string
	suffix string
	// saved selects the scope of the token kept by "token -save".
	saved bool
}

func addIdentity(fs *flag.FlagSet) *identity {
	id := &identity{}
	fs.StringVar(&id.id, "user", "", "user id")
	fs.StringVar(&id.email, "email", "", "user email")
	fs.StringVar(&id.name, "name", "", "user display name")
	fs.StringVar(&id.suffix, "suffix", "", "page space below the user directory")
	return id
}

// addStorageIdentity is addIdentity for commands that can also run on the
// saved token.
func addStorageIdentity(fs *flag.FlagSet) *identity {
	id := addIdentity(fs)
	fs.BoolVar(&id.saved, "saved", false, "use the saved token instead of issuing one")
	return id
}

// set reports whether any scope selecting flag was given.
func (id *identity) set() bool {
	return id.id != "" || id.suffix != ""
}

func (id *identity) user() token.User {
	u := token.User{ID: id.id}
	if id.email != "" {
		u.Email = &id.email
	}
	if id.name != "" {
		u.DisplayName = &id.name
	}
	return u
}

// expiresAt turns a lifetime into a unix expiry. Zero leaves the choice to
// the issuer.
func expiresAt(now time.Time, d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return now.Add(d).Unix()
}

// splitMethods parses a comma separated method list. Empty input selects
// every method.
func splitMethods(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, strings.ToUpper(m))
		}
	}
	return out
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
