package jobs_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoaheadsnl/cloudsync/internal/sources/jobs"
	"github.com/cocoaheadsnl/cloudsync/internal/sources/testhelper"
	pkgerrors "github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
)

func TestFetch(t *testing.T) {
	srv, rec := testhelper.Serve(t, testhelper.File(t, "feed.rss", "application/rss+xml"))
	c, err := jobs.NewClient(srv.URL + "/feed")
	require.NoError(t, err)

	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, "https://jobs.example.nl/senior-ios-developer", first.Link)
	assert.Equal(t, "Senior iOS Developer", first.Title)
	assert.Equal(t, "<p>Build great apps.</p>", first.Content)
	assert.Equal(t, "Acme BV", first.Author)
	assert.Equal(t, "https://jobs.example.nl/logos/acme.png", first.LogoURL)
	require.NotNil(t, first.Date)
	assert.True(t, first.Date.Equal(time.Date(2024, 10, 7, 7, 30, 0, 0, time.UTC)))

	assert.Equal(t, "Only a description", got[1].Content)
	assert.Nil(t, got[1].Date)
	assert.Empty(t, got[2].Link, "items without a link are left for the adapter to reject")

	assert.Contains(t, rec.Requests[0].Header.Get("Accept"), "application/rss+xml")
	assert.Equal(t, sources.JobsID, c.ID())
}

func TestFetchMapsThroughAdapter(t *testing.T) {
	srv, _ := testhelper.Serve(t, testhelper.File(t, "feed.rss", "application/rss+xml"))
	c, err := jobs.NewClient(srv.URL)
	require.NoError(t, err)

	batch, err := sources.Candidates(context.Background(), sources.Source[sources.Job](c), sources.JobRecord, sources.ShapeSkip)
	require.NoError(t, err)
	assert.Len(t, batch.Records, 2)
	assert.Equal(t, 1, batch.Skipped)
}

func TestFetchErrors(t *testing.T) {
	t.Run("not a feed", func(t *testing.T) {
		srv, _ := testhelper.Serve(t, testhelper.Status(http.StatusOK, "hello"))
		c, err := jobs.NewClient(srv.URL)
		require.NoError(t, err)
		_, err = c.Fetch(context.Background())
		var pe *pkgerrors.ParseError
		assert.ErrorAs(t, err, &pe)
	})

	t.Run("unavailable", func(t *testing.T) {
		srv, _ := testhelper.Serve(t, testhelper.Status(http.StatusServiceUnavailable, ""))
		c, err := jobs.NewClient(srv.URL)
		require.NoError(t, err)
		_, err = c.Fetch(context.Background())
		assert.ErrorIs(t, err, pkgerrors.ErrProviderUnavailable)
	})

	t.Run("no url", func(t *testing.T) {
		_, err := jobs.NewClient("")
		assert.True(t, pkgerrors.IsValidationError(err))
	})
}

func TestConvertItemAtomFallbacks(t *testing.T) {
	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	job := jobs.ConvertItem(&gofeed.Item{
		Link:          "https://x/job",
		Authors:       []*gofeed.Person{{Name: "Jane"}},
		Image:         &gofeed.Image{URL: "https://x/logo.jpg"},
		UpdatedParsed: &updated,
	})
	assert.Equal(t, "https://x/job", job.Link)
	assert.Equal(t, "Jane", job.Author)
	assert.Equal(t, "https://x/logo.jpg", job.LogoURL)
	require.NotNil(t, job.Date)
	assert.True(t, job.Date.Equal(updated))
	assert.NotSame(t, &updated, job.Date)
}

func TestConvertItemDateInUTC(t *testing.T) {
	published := time.Date(2024, 10, 7, 9, 30, 0, 0, time.FixedZone("CEST", 2*60*60))
	item := &gofeed.Item{Link: "https://x/job", PublishedParsed: &published}

	job := jobs.ConvertItem(item)
	require.NotNil(t, job.Date)
	assert.Equal(t, time.UTC, job.Date.Location())
	assert.True(t, job.Date.Equal(published))

	*item.PublishedParsed = published.Add(time.Hour)
	assert.True(t, job.Date.Equal(published), "the job does not alias the feed item")
}

func TestConvertItemKeepsLinkVerbatim(t *testing.T) {
	for _, link := range []string{" https://x/job ", "https://x/job/", "https://x/job?ref=rss"} {
		job := jobs.ConvertItem(&gofeed.Item{Link: link, Title: "  iOS developer "})
		assert.Equal(t, link, job.Link)
		assert.Equal(t, "iOS developer", job.Title)
	}
}
