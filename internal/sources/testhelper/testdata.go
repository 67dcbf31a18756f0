// Package testhelper provides utilities for serving testdata files in fetcher tests.
package testhelper

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// LoadTestdata loads a testdata file from the caller's testdata directory.
func LoadTestdata(t *testing.T, filename string) []byte {
	t.Helper()

	testdataPath := filepath.Join("testdata", filename)
	data, err := os.ReadFile(testdataPath) //nolint:gosec // Test file paths are controlled
	if err != nil {
		t.Fatalf("Failed to load testdata file %s: %v", testdataPath, err)
	}
	return data
}

// Recorder captures the requests a test server received.
type Recorder struct {
	Requests []*http.Request
}

// Serve starts a server that answers every request with handler and records
// the requests. The server is closed when the test ends.
func Serve(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.Requests = append(rec.Requests, r.Clone(r.Context()))
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

// File returns a handler that writes a testdata file with the given content type.
func File(t *testing.T, filename, contentType string) http.HandlerFunc {
	t.Helper()
	data := LoadTestdata(t, filename)
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(data)
	}
}

// Status returns a handler that replies with code and body.
func Status(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}
}
