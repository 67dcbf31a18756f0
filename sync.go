package cloudsync

import (
	"context"

	"github.com/google/uuid"

	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
	"github.com/cocoaheadsnl/cloudsync/pkg/pipeline"
	"github.com/cocoaheadsnl/cloudsync/pkg/reconciler"
)

// Sync runs contributors, events and jobs in order against the store.
func (c *client) Sync(ctx context.Context, opts ...SyncOption) (*pipeline.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	options := NewSyncOptions(opts...)
	if options.RunID == "" {
		options.RunID = uuid.NewString()
	}
	ctx = logging.WithRunID(ctx, options.RunID)
	logger := logging.FromContext(ctx)

	rec, err := reconciler.New(reconciler.WithSelector(c.config.selector))
	if err != nil {
		return nil, err
	}

	pipeOpts := []pipeline.Option{
		pipeline.WithReconciler(rec),
		pipeline.WithDryRun(options.DryRun),
		pipeline.WithRunID(options.RunID),
		pipeline.WithOnState(c.hooks.triggerState),
	}
	if len(options.Stages) > 0 {
		pipeOpts = append(pipeOpts, pipeline.WithOnly(options.Stages...))
	}

	p, err := pipeline.New(c.config.store, c.stages(), pipeOpts...)
	if err != nil {
		return nil, err
	}

	logger.Info().Bool("dry_run", options.DryRun).Msg("Starting sync")
	result, runErr := p.Run(ctx)
	c.hooks.triggerStages(result)
	c.record(ctx, result)

	if runErr != nil {
		logger.Error().Err(runErr).Str("stage", result.FailedStage).Msg("Sync failed")
		return result, runErr
	}
	logger.Info().Dur("duration", result.Duration).Msg("Sync complete")
	return result, nil
}

// record observes the result and pushes metrics. Push failures are logged,
// never returned: a run that wrote its records succeeded.
func (c *client) record(ctx context.Context, res *pipeline.Result) {
	if c.config.metrics == nil {
		return
	}
	c.config.metrics.Observe(res)
	if err := c.config.metrics.Push(ctx, c.config.pushURL, c.config.instance, res.Succeeded()); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("Failed to push metrics")
	}
}
