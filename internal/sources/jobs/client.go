// Package jobs reads job postings from an RSS or Atom feed.
package jobs

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/cocoaheadsnl/cloudsync/internal/transport"
	"github.com/cocoaheadsnl/cloudsync/internal/utils/ptr"
	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
)

const acceptFeed = "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8"

// Client implements sources.Source for a jobs feed.
type Client struct {
	transport *transport.Client
	feedURL   string
	parser    *gofeed.Parser
}

var _ sources.Source[sources.Job] = (*Client)(nil)

// NewClient creates a client for the feed at feedURL.
func NewClient(feedURL string, topts ...transport.Option) (*Client, error) {
	if feedURL == "" {
		return nil, errors.NewValidationError("jobs_feed_url", feedURL, "must be set")
	}
	return &Client{
		transport: transport.New(string(sources.JobsID), topts...),
		feedURL:   feedURL,
		parser:    gofeed.NewParser(),
	}, nil
}

// ID implements sources.Source.
func (c *Client) ID() sources.ID { return sources.JobsID }

// Fetch implements sources.Source. Items keep feed order.
func (c *Client) Fetch(ctx context.Context) ([]sources.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, errors.NewValidationError("jobs_feed_url", c.feedURL, err.Error())
	}
	req.Header.Set("Accept", acceptFeed)

	resp, err := c.transport.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := transport.ReadBody(resp, c.transport.Provider())
	if err != nil {
		return nil, err
	}

	feed, err := c.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapParse("xml", "jobs feed", err)
	}

	jobs := make([]sources.Job, 0, len(feed.Items))
	for _, item := range feed.Items {
		jobs = append(jobs, ConvertItem(item))
	}

	logging.FromContext(ctx).Debug().
		Str("feed", feed.Title).
		Str("feed_type", feed.FeedType).
		Int("jobs", len(jobs)).
		Msg("Fetched jobs feed")
	return jobs, nil
}

// ConvertItem maps a feed item to a job. The link is the job's key and is
// kept byte for byte. The date is a UTC copy of the published time, or of the
// updated time when there is none. Content falls back to the item
// description; the logo is the item image or the first image enclosure.
func ConvertItem(item *gofeed.Item) sources.Job {
	job := sources.Job{
		Link:    item.Link,
		Title:   strings.TrimSpace(item.Title),
		Content: item.Content,
		LogoURL: logoURL(item),
	}
	if job.Content == "" {
		job.Content = item.Description
	}
	if item.Author != nil {
		job.Author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		job.Author = item.Authors[0].Name
	}
	switch {
	case item.PublishedParsed != nil:
		job.Date = ptr.To(item.PublishedParsed.UTC())
	case item.UpdatedParsed != nil:
		job.Date = ptr.To(item.UpdatedParsed.UTC())
	}
	return job
}

func logoURL(item *gofeed.Item) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}
