package netx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDoJSON(t *testing.T) {
	type payload struct {
		Method string `json:"method"`
	}

	t.Run("success round trip", func(t *testing.T) {
		var gotMethod, gotCT, gotAuth string
		var got payload

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"method":"echo"}`))
		}))
		defer ts.Close()

		var out payload
		h := http.Header{"Authorization": []string{"Bearer x"}}
		err := DoJSON(context.Background(), ts.Client(), http.MethodPost, ts.URL, h, payload{Method: "PUT"}, &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotMethod != http.MethodPost {
			t.Fatalf("method = %q, want POST", gotMethod)
		}
		if gotCT != "application/json" {
			t.Fatalf("Content-Type = %q", gotCT)
		}
		if gotAuth != "Bearer x" {
			t.Fatalf("Authorization = %q", gotAuth)
		}
		if got.Method != "PUT" || out.Method != "echo" {
			t.Fatalf("got %+v, out %+v", got, out)
		}
	})

	t.Run("non-2xx -> StatusError", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("nope"))
		}))
		defer ts.Close()

		err := DoJSON(context.Background(), nil, http.MethodGet, ts.URL, nil, nil, nil)
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("expected *StatusError, got %v", err)
		}
		if se.Status != http.StatusForbidden || se.Body != "nope" {
			t.Fatalf("got %+v", se)
		}
		if !strings.Contains(err.Error(), "403") {
			t.Fatalf("error = %q, want to contain 403", err.Error())
		}
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		err := DoJSON(context.Background(), nil, http.MethodGet, ts.URL, nil, nil, nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		var se *StatusError
		if errors.As(err, &se) {
			t.Fatalf("got status error for a transport failure: %v", err)
		}
	})

	t.Run("bad json response", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{`))
		}))
		defer ts.Close()

		var out payload
		err := DoJSON(context.Background(), nil, http.MethodGet, ts.URL, nil, nil, &out)
		if err == nil || !strings.Contains(err.Error(), "decode response") {
			t.Fatalf("expected decode error, got %v", err)
		}
	})
}
