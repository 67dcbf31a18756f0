// Package github fetches repository contributors from the GitHub REST API.
package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/cocoaheadsnl/cloudsync/internal/transport"
	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
)

// DefaultBaseURL is the GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

// DefaultRepo is the repository whose contributors are synced.
const DefaultRepo = "CocoaHeadsNL/CocoaHeadsNL"

const (
	perPage  = 100
	maxPages = 20
)

// ContributorData is one entry of the contributors endpoint.
type ContributorData struct {
	ID            int64  `json:"id"`
	Login         string `json:"login"`
	AvatarURL     string `json:"avatar_url"`
	HTMLURL       string `json:"html_url"`
	Contributions int64  `json:"contributions"`
	Type          string `json:"type"`
}

// Client implements sources.Source for repository contributors.
type Client struct {
	transport *transport.Client
	baseURL   string
	owner     string
	repo      string
}

var _ sources.Source[sources.Contributor] = (*Client)(nil)

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

// NewClient creates a client for repo, given as owner/name. An empty token
// queries the API anonymously.
func NewClient(repo, token string, topts []transport.Option, opts ...Option) (*Client, error) {
	if repo == "" {
		repo = DefaultRepo
	}
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, errors.NewValidationError("github_repo", repo, "must be owner/name")
	}

	topts = append([]transport.Option{transport.WithCredential(&transport.BearerAuth{}, token)}, topts...)
	c := &Client{
		transport: transport.New(string(sources.GitHubID), topts...),
		baseURL:   DefaultBaseURL,
		owner:     owner,
		repo:      name,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID implements sources.Source.
func (c *Client) ID() sources.ID { return sources.GitHubID }

// Fetch implements sources.Source. Pages are followed through the Link
// header; bots are kept since the API lists them as regular contributors.
func (c *Client) Fetch(ctx context.Context) ([]sources.Contributor, error) {
	logger := logging.FromContext(ctx)

	var out []sources.Contributor
	next := fmt.Sprintf("%s/repos/%s/%s/contributors?per_page=%d", c.baseURL, c.owner, c.repo, perPage)
	for page := 0; next != "" && page < maxPages; page++ {
		resp, err := c.transport.Get(ctx, next)
		if err != nil {
			return nil, err
		}
		next = transport.NextLink(resp.Header)

		var data []ContributorData
		if err := transport.DecodeResponse(resp, c.transport.Provider(), &data); err != nil {
			return nil, err
		}
		for _, d := range data {
			out = append(out, ConvertContributor(d))
		}
	}

	logger.Debug().
		Str("repo", c.owner+"/"+c.repo).
		Int("contributors", len(out)).
		Msg("Fetched GitHub contributors")
	return out, nil
}

// ConvertContributor maps the API shape to a source contributor.
func ConvertContributor(d ContributorData) sources.Contributor {
	return sources.Contributor{
		ID:          d.ID,
		Name:        d.Login,
		AvatarURL:   d.AvatarURL,
		CommitCount: d.Contributions,
		HTMLURL:     d.HTMLURL,
	}
}
