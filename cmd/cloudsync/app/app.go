// Package app wires configuration, logging and the sync client together
// for the cloudsync CLI.
package app

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cocoaheadsnl/cloudsync"
	"github.com/cocoaheadsnl/cloudsync/internal/cloudkit"
	"github.com/cocoaheadsnl/cloudsync/internal/sources/github"
	"github.com/cocoaheadsnl/cloudsync/internal/sources/jobs"
	"github.com/cocoaheadsnl/cloudsync/internal/sources/meetup"
	"github.com/cocoaheadsnl/cloudsync/internal/transport"
	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/metrics"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
	"github.com/cocoaheadsnl/cloudsync/pkg/store"
	"github.com/cocoaheadsnl/cloudsync/pkg/store/memory"
)

// App represents the cloudsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	flags  Flags
	logger *zerolog.Logger
	out    io.Writer

	// Sync client (lazy-initialized, singleton)
	mu     sync.Mutex
	client cloudsync.Client
	store  store.Store
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Client returns the sync client, creating it on first use.
func (a *App) Client() (cloudsync.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	opts, err := a.buildClientOptions()
	if err != nil {
		return nil, err
	}
	c, err := cloudsync.New(opts...)
	if err != nil {
		return nil, err
	}
	a.client = c
	return c, nil
}

// buildClientOptions constructs the sources, store and metrics from the
// app configuration.
func (a *App) buildClientOptions() ([]cloudsync.Option, error) {
	cfg := a.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	topts := []transport.Option{transport.WithTimeout(cfg.HTTPTimeout)}

	contributors, err := github.NewClient(cfg.GitHubRepo, cfg.GitHubToken, topts, github.WithBaseURL(cfg.GitHubBaseURL))
	if err != nil {
		return nil, err
	}
	events := meetup.NewClient(cfg.MeetupAPIKey, topts,
		meetup.WithBaseURL(cfg.MeetupBaseURL),
		meetup.WithGroup(cfg.MeetupGroup),
	)
	feed, err := jobs.NewClient(cfg.JobsFeedURL, topts...)
	if err != nil {
		return nil, err
	}

	st := a.store
	if st == nil {
		if st, err = a.newStore(topts); err != nil {
			return nil, err
		}
	}

	policy, err := sources.ParseShapePolicy(cfg.ShapePolicy)
	if err != nil {
		return nil, err
	}

	return []cloudsync.Option{
		cloudsync.WithStore(st),
		cloudsync.WithContributorSource(contributors),
		cloudsync.WithEventSource(events),
		cloudsync.WithJobSource(feed),
		cloudsync.WithShapePolicy(policy),
		cloudsync.WithMetrics(metrics.New(), cfg.PushgatewayURL, cfg.PushInstance),
	}, nil
}

func (a *App) newStore(topts []transport.Option) (store.Store, error) {
	if a.config.Memory {
		a.logger.Warn().Msg("Using in-memory store; nothing is written to CloudKit")
		return memory.New()
	}
	ckcfg, err := a.config.CloudKit()
	if err != nil {
		return nil, err
	}
	c, err := cloudkit.NewClient(ckcfg, topts...)
	if err != nil {
		return nil, errors.NewConfigError("cloudkit", "creating client", err)
	}
	return c, nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithOutput sets where run summaries are written.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}

// WithStore sets the record store instead of building one from config
// (useful for testing).
func WithStore(s store.Store) Option {
	return func(a *App) error {
		a.store = s
		return nil
	}
}
