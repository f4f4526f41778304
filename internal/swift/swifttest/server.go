// Package swifttest runs an in-memory Swift container over HTTP for tests.
package swifttest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/swiftvfs/internal/scope"
)

// Object is a stored object.
type Object struct {
	Data        []byte
	ContentType string
	Header      http.Header
	Modified    time.Time
}

// Call records a request the server received.
type Call struct {
	Method string
	// Key is the container-relative key, or "" for listings.
	Key   string
	Query url.Values
}

// Server is a fake container at /v1/<account>/<container>.
type Server struct {
	*httptest.Server
	Account   string
	Container string

	mu      sync.Mutex
	objects map[string]Object
	calls   []Call
	fail    map[string]int
	// Authorize, when set, decides whether a request is let through.
	// Rejected requests get a 401.
	Authorize func(r *http.Request) bool
}

// New starts a server. Close it when done.
func New(account, container string) *Server {
	s := &Server{Account: account, Container: container, objects: map[string]Object{}, fail: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Config returns a scope configuration pointing at s.
func (s *Server) Config(sitePrefix string) scope.Config {
	return scope.Config{StorageURL: s.URL + "/v1", Account: s.Account, Container: s.Container, SitePrefix: sitePrefix}
}

// Put stores an object directly.
func (s *Server) Put(key string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: data, ContentType: contentType, Header: http.Header{}, Modified: time.Now().UTC()}
}

// Object returns the object at key.
func (s *Server) Object(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	return o, ok
}

// Keys returns every stored key in order.
func (s *Server) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedKeys()
}

// Fail makes every request for key answer with status.
func (s *Server) Fail(key string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[key] = status
}

// Calls returns the recorded requests.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Listings returns the recorded listing requests.
func (s *Server) Listings() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Key == "" && c.Method == http.MethodGet {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	base := "/v1/" + s.Account + "/" + s.Container
	if r.URL.Path != base && !strings.HasPrefix(r.URL.Path, base+"/") {
		http.NotFound(w, r)
		return
	}
	key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, base), "/")

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: r.Method, Key: key, Query: r.URL.Query()})
	status, failing := s.fail[key]
	s.mu.Unlock()

	if s.Authorize != nil && !s.Authorize(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if failing {
		http.Error(w, http.StatusText(status), status)
		return
	}

	if key == "" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.list(w, r.URL.Query())
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		s.mu.Lock()
		o, ok := s.objects[key]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		for k, v := range o.Header {
			w.Header()[k] = v
		}
		w.Header().Set("Content-Type", o.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(o.Data)))
		w.Header().Set("Last-Modified", o.Modified.Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(o.Data)
		}
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h := http.Header{}
		for k, v := range r.Header {
			if strings.HasPrefix(k, "X-Object-Meta-") || k == "Content-Disposition" {
				h[k] = v
			}
		}
		s.mu.Lock()
		s.objects[key] = Object{Data: data, ContentType: r.Header.Get("Content-Type"), Header: h, Modified: time.Now().UTC()}
		s.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		s.mu.Lock()
		_, ok := s.objects[key]
		delete(s.objects, key)
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

type entry struct {
	Subdir       string `json:"subdir,omitempty"`
	Name         string `json:"name,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	Bytes        int    `json:"bytes,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
	Hash         string `json:"hash,omitempty"`
}

func (s *Server) list(w http.ResponseWriter, q url.Values) {
	prefix, delim, marker := q.Get("prefix"), q.Get("delimiter"), q.Get("marker")
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10000
	}

	s.mu.Lock()
	keys := s.sortedKeys()
	total := len(s.objects)
	var out []entry
	for _, k := range keys {
		if len(out) >= limit {
			break
		}
		if !strings.HasPrefix(k, prefix) || k <= marker {
			continue
		}
		if delim != "" && strings.HasSuffix(marker, delim) && strings.HasPrefix(k, marker) {
			continue
		}
		if delim != "" {
			if i := strings.Index(k[len(prefix):], delim); i >= 0 {
				sub := k[:len(prefix)+i+len(delim)]
				if len(out) == 0 || out[len(out)-1].Subdir != sub {
					out = append(out, entry{Subdir: sub})
				}
				continue
			}
		}
		o := s.objects[k]
		out = append(out, entry{
			Name:         k,
			ContentType:  o.ContentType,
			Bytes:        len(o.Data),
			LastModified: o.Modified.Format("2006-01-02T15:04:05.000000"),
		})
	}
	s.mu.Unlock()

	if out == nil {
		out = []entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Container-Object-Count", strconv.Itoa(total))
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) sortedKeys() []string {
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
