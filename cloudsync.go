// Package cloudsync keeps the CocoaHeadsNL CloudKit container in step with
// its upstream sources: contributors from GitHub, events from Meetup and job
// postings from a feed. Each run reconciles the three record types in turn
// and writes only what changed identity-wise: matched records are updated
// in place, new ones inserted, and stale job postings removed.
package cloudsync

import (
	"context"
	"fmt"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/metrics"
	"github.com/cocoaheadsnl/cloudsync/pkg/pipeline"
	"github.com/cocoaheadsnl/cloudsync/pkg/reconciler"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
	"github.com/cocoaheadsnl/cloudsync/pkg/store"
)

// Reconciliation configs for the three stages.
var (
	ContributorConfig = reconciler.Config{Type: records.Contributor, Key: sources.FieldContributorID}
	EventConfig       = reconciler.Config{Type: records.Event, Key: sources.FieldMeetupID}
	JobConfig         = reconciler.Config{Type: records.Job, Key: sources.FieldJobLink, DeleteOrphans: true}
)

// Client runs syncs against one store.
type Client interface {
	// Sync runs every stage once. The result is returned even on failure.
	Sync(ctx context.Context, opts ...SyncOption) (*pipeline.Result, error)

	// OnStateChange registers a callback for pipeline state transitions
	OnStateChange(StateHook)

	// OnStageComplete registers a callback for each completed stage
	OnStageComplete(StageHook)
}

// client is the internal implementation of the Client interface
type client struct {
	config *config
	hooks  *hooks
}

// New creates a client. A store and all three sources are required.
func New(opts ...Option) (Client, error) {
	c := &client{
		config: defaultConfig(),
		hooks:  newHooks(),
	}
	for _, opt := range opts {
		if err := opt(c.config); err != nil {
			return nil, fmt.Errorf("applying options: %w", err)
		}
	}
	if err := c.config.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// OnStateChange implements Client.
func (c *client) OnStateChange(fn StateHook) {
	c.hooks.OnStateChange(fn)
}

// OnStageComplete implements Client.
func (c *client) OnStageComplete(fn StageHook) {
	c.hooks.OnStageComplete(fn)
}

// stages builds the pipeline stages in their fixed order.
func (c *client) stages() []pipeline.Stage {
	cfg := c.config
	return []pipeline.Stage{
		pipeline.NewStage(pipeline.StageContributors, cfg.contributors, sources.ContributorRecord, ContributorConfig, cfg.shapePolicy),
		pipeline.NewStage(pipeline.StageEvents, cfg.events, sources.EventRecord, EventConfig, cfg.shapePolicy),
		pipeline.NewStage(pipeline.StageJobs, cfg.jobs, sources.JobRecord, JobConfig, cfg.shapePolicy),
	}
}

// config holds client configuration.
type config struct {
	store        store.Store
	contributors sources.Source[sources.Contributor]
	events       sources.Source[sources.Event]
	jobs         sources.Source[sources.Job]
	shapePolicy  sources.ShapePolicy
	selector     reconciler.Selector
	metrics      *metrics.Metrics
	pushURL      string
	instance     string
}

func defaultConfig() *config {
	return &config{
		shapePolicy: sources.ShapeSkip,
		selector:    reconciler.SelectPrimary,
	}
}

func (c *config) validate() error {
	switch {
	case c.store == nil:
		return errors.NewConfigError("cloudsync", "a record store is required", nil)
	case c.contributors == nil:
		return errors.NewConfigError("cloudsync", "a contributor source is required", nil)
	case c.events == nil:
		return errors.NewConfigError("cloudsync", "an event source is required", nil)
	case c.jobs == nil:
		return errors.NewConfigError("cloudsync", "a job source is required", nil)
	}
	return nil
}
