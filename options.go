package cloudsync

import (
	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/metrics"
	"github.com/cocoaheadsnl/cloudsync/pkg/reconciler"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
	"github.com/cocoaheadsnl/cloudsync/pkg/store"
)

// Option is a function that configures a Client
type Option func(*config) error

// WithStore configures the remote record store
func WithStore(s store.Store) Option {
	return func(c *config) error {
		c.store = s
		return nil
	}
}

// WithContributorSource configures where contributors come from
func WithContributorSource(src sources.Source[sources.Contributor]) Option {
	return func(c *config) error {
		c.contributors = src
		return nil
	}
}

// WithEventSource configures where events come from
func WithEventSource(src sources.Source[sources.Event]) Option {
	return func(c *config) error {
		c.events = src
		return nil
	}
}

// WithJobSource configures where job postings come from
func WithJobSource(src sources.Source[sources.Job]) Option {
	return func(c *config) error {
		c.jobs = src
		return nil
	}
}

// WithShapePolicy configures how malformed source items are handled
func WithShapePolicy(p sources.ShapePolicy) Option {
	return func(c *config) error {
		if p != sources.ShapeSkip && p != sources.ShapeAbort {
			return errors.NewValidationError("shape_policy", p, "unknown policy")
		}
		c.shapePolicy = p
		return nil
	}
}

// WithSelector configures the tie-break between duplicate remote records
func WithSelector(s reconciler.Selector) Option {
	return func(c *config) error {
		if s == nil {
			return errors.NewValidationError("selector", nil, "cannot be nil")
		}
		c.selector = s
		return nil
	}
}

// WithMetrics records each run in m and, if pushURL is set, pushes the
// metrics to a Pushgateway under the given instance label
func WithMetrics(m *metrics.Metrics, pushURL, instance string) Option {
	return func(c *config) error {
		c.metrics = m
		c.pushURL = pushURL
		c.instance = instance
		return nil
	}
}

// SyncOption configures a single Sync call
type SyncOption func(*SyncOptions)

// SyncOptions holds the options of one run
type SyncOptions struct {
	DryRun bool
	Stages []string // empty means all
	RunID  string
}

// NewSyncOptions applies opts to the defaults
func NewSyncOptions(opts ...SyncOption) *SyncOptions {
	o := &SyncOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithDryRun plans every stage without writing
func WithDryRun(enabled bool) SyncOption {
	return func(o *SyncOptions) {
		o.DryRun = enabled
	}
}

// WithStages restricts the run to the named stages
func WithStages(stages ...string) SyncOption {
	return func(o *SyncOptions) {
		o.Stages = stages
	}
}

// WithRunID sets the run identifier instead of generating one
func WithRunID(id string) SyncOption {
	return func(o *SyncOptions) {
		o.RunID = id
	}
}
