package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/internal/transport"
)

func TestClientAppliesCredentialAndHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := transport.New("github",
		transport.WithCredential(&transport.BearerAuth{}, "tok"),
		transport.WithUserAgent("cloudsync-test"),
		transport.WithTimeout(time.Second),
	)
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	var body struct{ OK bool }
	require.NoError(t, transport.DecodeResponse(resp, c.Provider(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, "Bearer tok", got.Get("Authorization"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "cloudsync-test", got.Get("User-Agent"))
}

func TestClientWithoutCredential(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := transport.New("github", transport.WithCredential(&transport.BearerAuth{}, ""))
	resp, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NoError(t, transport.DecodeResponse(resp, "github", &struct{}{}))
	assert.Empty(t, auth)
}

func TestDecodeResponseErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			body:   "slow down",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, pkgerrors.ErrRateLimited)
				var apiErr *pkgerrors.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, "meetup", apiErr.Provider)
				assert.Equal(t, "/2/events", apiErr.Endpoint)
				assert.Equal(t, "slow down", apiErr.Message)
			},
		},
		{
			name:   "server error",
			status: http.StatusBadGateway,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, pkgerrors.ErrProviderUnavailable)
				assert.Contains(t, err.Error(), "Bad Gateway")
			},
		},
		{
			name:   "bad json",
			status: http.StatusOK,
			body:   "{",
			check: func(t *testing.T, err error) {
				var pe *pkgerrors.ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, "json", pe.Format)
			},
		},
		{
			name:   "long body is truncated",
			status: http.StatusBadRequest,
			body:   strings.Repeat("x", 2000),
			check: func(t *testing.T, err error) {
				var apiErr *pkgerrors.APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Less(t, len(apiErr.Message), 600)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := transport.New("meetup").Get(context.Background(), srv.URL+"/2/events")
			require.NoError(t, err)
			err = transport.DecodeResponse(resp, "meetup", &map[string]any{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClientCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := transport.New("jobs").Get(ctx, srv.URL)
	assert.ErrorIs(t, err, pkgerrors.ErrCanceled)
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"none", "", ""},
		{
			"github style",
			`<https://api.github.com/repositories/1/contributors?page=2>; rel="next", <https://api.github.com/repositories/1/contributors?page=5>; rel="last"`,
			"https://api.github.com/repositories/1/contributors?page=2",
		},
		{"last page", `<https://x/?page=1>; rel="prev"`, ""},
		{"unquoted", `<https://x/?page=3>; rel=next`, "https://x/?page=3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Link", tt.header)
			}
			assert.Equal(t, tt.want, transport.NextLink(h))
		})
	}
}
