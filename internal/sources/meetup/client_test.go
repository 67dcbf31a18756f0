package meetup_test

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoaheadsnl/cloudsync/internal/sources/meetup"
	"github.com/cocoaheadsnl/cloudsync/internal/sources/testhelper"
	pkgerrors "github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
)

func TestFetch(t *testing.T) {
	srv, rec := testhelper.Serve(t, testhelper.File(t, "events.json", "application/json"))
	c := meetup.NewClient("secret", nil, meetup.WithBaseURL(srv.URL), meetup.WithGroup("cocoaheadsnl"))

	events, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, sources.StringID("298765432"), first.ID)
	require.NotNil(t, first.Venue)
	assert.Equal(t, "Cafe", first.Venue.Name)
	assert.Equal(t, "Amsterdam", first.Venue.City)
	assert.InDelta(t, 52.3, first.Venue.Lat, 1e-9)
	require.NotNil(t, first.Duration)
	assert.Equal(t, int64(10800000), *first.Duration)
	require.NotNil(t, first.RSVPLimit)
	assert.Equal(t, int64(80), *first.RSVPLimit)

	second := events[1]
	assert.Equal(t, sources.NumericID(287654321), second.ID, "a numeric id keeps its kind")
	assert.Nil(t, second.Venue)
	assert.Nil(t, second.Description)
	assert.Nil(t, second.RSVPLimit)

	require.Len(t, rec.Requests, 1)
	q := rec.Requests[0].URL.Query()
	assert.Equal(t, "/2/events", rec.Requests[0].URL.Path)
	assert.Equal(t, "secret", q.Get("key"))
	assert.Equal(t, "cocoaheadsnl", q.Get("group_urlname"))
	assert.Equal(t, "upcoming,past", q.Get("status"))
	assert.Equal(t, "true", q.Get("desc"))

	assert.Equal(t, sources.MeetupID, c.ID())
}

func TestFetchFollowsNext(t *testing.T) {
	var base string
	srv, rec := testhelper.Serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "" {
			fmt.Fprintf(w, `{"results":[{"id":"1","name":"a","time":1}],"meta":{"next":%q}}`, base+"/2/events?offset=1")
			return
		}
		fmt.Fprint(w, `{"results":[{"id":"2","name":"b","time":2}],"meta":{"next":""}}`)
	})
	base = srv.URL

	events, err := meetup.NewClient("k", nil, meetup.WithBaseURL(srv.URL)).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, sources.StringID("2"), events[1].ID)
	assert.Len(t, rec.Requests, 2)
	assert.Equal(t, "k", rec.Requests[1].URL.Query().Get("key"))
}

func TestFetchErrors(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		srv, _ := testhelper.Serve(t, testhelper.Status(http.StatusUnauthorized, `{"problem":"invalid key"}`))
		_, err := meetup.NewClient("bad", nil, meetup.WithBaseURL(srv.URL)).Fetch(context.Background())
		assert.ErrorIs(t, err, pkgerrors.ErrAuthentication)
	})

	t.Run("malformed", func(t *testing.T) {
		srv, _ := testhelper.Serve(t, testhelper.Status(http.StatusOK, `<html>`))
		_, err := meetup.NewClient("k", nil, meetup.WithBaseURL(srv.URL)).Fetch(context.Background())
		var pe *pkgerrors.ParseError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("foreign next link", func(t *testing.T) {
		srv, _ := testhelper.Serve(t, testhelper.Status(http.StatusOK, `{"results":[],"meta":{"next":"https://evil.example/2/events"}}`))
		_, err := meetup.NewClient("k", nil, meetup.WithBaseURL(srv.URL)).Fetch(context.Background())
		assert.Error(t, err)
	})
}

func TestFetchRejectsLookalikeNextHost(t *testing.T) {
	var next string
	srv, rec := testhelper.Serve(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results":[{"id":"1","name":"a","time":1}],"meta":{"next":%q}}`, next)
	})
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	for _, link := range []string{
		"http://" + u.Hostname() + ".evil.example:" + u.Port() + "/2/events?offset=1",
		srv.URL + ".evil.example/2/events?offset=1",
		srv.URL + "@evil.example/2/events?offset=1",
		"https://" + u.Host + "/2/events?offset=1",
		"http://" + u.Hostname() + ":1/2/events?offset=1",
	} {
		next = link
		before := len(rec.Requests)
		_, err := meetup.NewClient("k", nil, meetup.WithBaseURL(srv.URL)).Fetch(context.Background())
		var apiErr *pkgerrors.APIError
		require.ErrorAsf(t, err, &apiErr, "next %s", link)
		assert.Equal(t, link, apiErr.Endpoint)
		assert.Len(t, rec.Requests, before+1, "next %s must not be requested", link)
	}
}

