// Package meetup fetches the group's events from the Meetup API.
package meetup

import (
	"context"
	"net/url"
	"strings"

	"github.com/cocoaheadsnl/cloudsync/internal/transport"
	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
)

// DefaultBaseURL is the Meetup API root.
const DefaultBaseURL = "https://api.meetup.com"

// DefaultGroup is the group synced when none is configured.
const DefaultGroup = "cocoaheadsnl"

// maxPages bounds pagination in case the API keeps returning a next link.
const maxPages = 50

// Response is the events API envelope.
type Response struct {
	Results []sources.Event `json:"results"`
	Meta    struct {
		Next       string `json:"next"`
		TotalCount int    `json:"total_count"`
	} `json:"meta"`
}

// Client implements sources.Source for Meetup events.
type Client struct {
	transport *transport.Client
	baseURL   string
	group     string
}

var _ sources.Source[sources.Event] = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithGroup sets the group URL name.
func WithGroup(group string) Option {
	return func(c *Client) {
		if group != "" {
			c.group = group
		}
	}
}

// NewClient creates a Meetup client. The API key is sent as the key query
// parameter.
func NewClient(apiKey string, topts []transport.Option, opts ...Option) *Client {
	topts = append([]transport.Option{transport.WithCredential(&transport.QueryAuth{Param: "key"}, apiKey)}, topts...)
	c := &Client{
		transport: transport.New(string(sources.MeetupID), topts...),
		baseURL:   DefaultBaseURL,
		group:     DefaultGroup,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID implements sources.Source.
func (c *Client) ID() sources.ID { return sources.MeetupID }

// EventsURL returns the first page URL.
func (c *Client) EventsURL() string {
	q := url.Values{}
	q.Set("sign", "true")
	q.Set("photo-host", "public")
	q.Set("group_urlname", c.group)
	q.Set("desc", "true")
	q.Set("status", "upcoming,past")
	return c.baseURL + "/2/events?" + q.Encode()
}

// Fetch implements sources.Source. It returns upcoming and past events,
// newest first, following meta.next across pages.
func (c *Client) Fetch(ctx context.Context) ([]sources.Event, error) {
	logger := logging.FromContext(ctx)

	var events []sources.Event
	next := c.EventsURL()
	for page := 0; next != "" && page < maxPages; page++ {
		resp, err := c.transport.Get(ctx, next)
		if err != nil {
			return nil, err
		}

		var body Response
		if err := transport.DecodeResponse(resp, c.transport.Provider(), &body); err != nil {
			return nil, err
		}
		events = append(events, body.Results...)

		next = body.Meta.Next
		if next != "" && !c.sameOrigin(next) {
			return nil, &errors.APIError{
				Provider: c.transport.Provider(),
				Endpoint: next,
				Message:  "next page points outside the API",
			}
		}
	}

	logger.Debug().
		Str("group", c.group).
		Int("events", len(events)).
		Msg("Fetched Meetup events")
	return events, nil
}

// sameOrigin reports whether link shares the base URL's scheme and host.
func (c *Client) sameOrigin(link string) bool {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}
