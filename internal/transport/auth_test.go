package transport

import (
	"net/http"
	"net/url"
	"testing"
)

// TestNoAuth tests that NoAuth applies no authentication.
func TestNoAuth(t *testing.T) {
	auth := &NoAuth{}
	req := &http.Request{Header: make(http.Header)}

	auth.Apply(req, "secret")

	if len(req.Header) != 0 {
		t.Errorf("Expected no headers, got %d", len(req.Header))
	}
}

// TestBearerAuth tests Bearer token authentication.
func TestBearerAuth(t *testing.T) {
	auth := &BearerAuth{}
	req := &http.Request{Header: make(http.Header)}

	auth.Apply(req, "ghp_token")

	if got := req.Header.Get("Authorization"); got != "Bearer ghp_token" {
		t.Errorf("Expected Authorization header 'Bearer ghp_token', got '%s'", got)
	}
}

// TestHeaderAuth tests custom header authentication.
func TestHeaderAuth(t *testing.T) {
	auth := &HeaderAuth{Header: "X-Api-Key"}
	req := &http.Request{Header: make(http.Header)}

	auth.Apply(req, "secret")

	if got := req.Header.Get("X-Api-Key"); got != "secret" {
		t.Errorf("Expected X-Api-Key header 'secret', got '%s'", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Error("Should not have Authorization header")
	}
}

// TestQueryAuth tests query parameter authentication.
func TestQueryAuth(t *testing.T) {
	auth := &QueryAuth{Param: "key"}

	reqURL, _ := url.Parse("https://api.meetup.com/2/events?group_urlname=cocoaheadsnl")
	req := &http.Request{URL: reqURL, Header: make(http.Header)}

	auth.Apply(req, "meetup-key")

	query := req.URL.Query()
	if query.Get("key") != "meetup-key" {
		t.Errorf("Expected query param 'key=meetup-key', got '%s'", req.URL.RawQuery)
	}
	if query.Get("group_urlname") != "cocoaheadsnl" {
		t.Errorf("Expected existing param to be preserved, got '%s'", query.Get("group_urlname"))
	}

	// nil URL must not panic
	auth.Apply(&http.Request{Header: make(http.Header)}, "meetup-key")
}
