package swift

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/models"
)

var (
	// ErrNoSignature is wrapped by AuthenticationError when the governing
	// token grants nothing for the requested method.
	ErrNoSignature = errors.New("no signature for method")
	// ErrIterated is yielded when a one-shot listing is ranged over twice.
	ErrIterated = errors.New("listing already consumed")
)

// HTTPStatusError is a non-2xx response from the storage.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("swift: http %d", e.Status)
	}
	return fmt.Sprintf("swift: http %d: %s", e.Status, e.Body)
}

// NetworkError is a transport failure where no response was received.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "swift: network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// AuthenticationError means the storage refused the credentials, or that
// there were none to send.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	if e.Err == nil {
		return "swift: authentication failed"
	}
	return "swift: authentication failed: " + e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// TokenExpiredError is an authentication failure explained by the
// governing token having expired.
type TokenExpiredError struct {
	ExpiredAt time.Time
	Err       error
}

func (e *TokenExpiredError) Error() string {
	return "swift: token expired at " + e.ExpiredAt.UTC().Format(time.RFC3339)
}

func (e *TokenExpiredError) Unwrap() error { return e.Err }

// ZipError collects the per-path failures of an archive. The archive it
// accompanies still holds every entry that was fetched.
type ZipError struct {
	Errors map[string]error
}

func (e *ZipError) Error() string {
	paths := make([]string, 0, len(e.Errors))
	for p := range e.Errors {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return fmt.Sprintf("swift: zip: %d of the requested files failed: %s", len(paths), strings.Join(paths, ", "))
}

// IsNotFound reports whether err is a 404 from the storage.
func IsNotFound(err error) bool {
	var se *HTTPStatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

// ErrorCode classifies err for display.
func ErrorCode(err error) models.ErrorCode {
	var (
		expired *TokenExpiredError
		auth    *AuthenticationError
		netErr  *NetworkError
	)
	switch {
	case err == nil:
		return models.ErrorNone
	case errors.As(err, &expired):
		return models.ErrorTokenExpired
	case errors.As(err, &auth):
		return models.ErrorUnauthorized
	case errors.As(err, &netErr):
		return models.ErrorNetwork
	case IsNotFound(err):
		return models.ErrorNotFound
	}
	return models.ErrorUnknown
}
