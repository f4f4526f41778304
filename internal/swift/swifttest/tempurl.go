package swifttest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/oracle"
)

// RequireTempURL makes s check tempurl signatures against key the way the
// Swift middleware does. Container listings are accepted under a prefix
// grant when the requested prefix lies within it.
func (s *Server) RequireTempURL(key []byte, digest string) {
	containerPath := "/v1/" + s.Account + "/" + s.Container
	s.Authorize = func(r *http.Request) bool {
		q := r.URL.Query()
		expires, err := strconv.ParseInt(q.Get("temp_url_expires"), 10, 64)
		if err != nil || expires < time.Now().Unix() {
			return false
		}

		path := r.URL.Path
		if p := q.Get("temp_url_prefix"); p != "" {
			objKey := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, containerPath), "/")
			if objKey == "" {
				objKey = q.Get("prefix")
			}
			if !strings.HasPrefix(objKey, p) {
				return false
			}
			path = "prefix:" + containerPath + "/" + p
		}

		want, err := oracle.Sign(key, digest, r.Method, expires, path)
		return err == nil && want == q.Get("temp_url_sig")
	}
}
