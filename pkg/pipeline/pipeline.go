// Package pipeline drives the sync run: it authenticates against the store
// once, then reconciles and writes each stage in turn. Stages never overlap,
// and the first failing stage ends the run.
package pipeline

import (
	"context"
	"slices"
	"time"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
	"github.com/cocoaheadsnl/cloudsync/pkg/reconciler"
	"github.com/cocoaheadsnl/cloudsync/pkg/store"
)

// Pipeline runs stages against a store.
type Pipeline struct {
	store  store.Store
	stages []Stage
	opts   *options
	state  State
}

// New creates a pipeline. Stages run in the order given.
func New(st store.Store, stages []Stage, opts ...Option) (*Pipeline, error) {
	if st == nil {
		return nil, errors.NewValidationError("store", nil, "cannot be nil")
	}
	o, err := defaultOptions().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.reconciler == nil {
		if o.reconciler, err = reconciler.New(); err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{}, len(stages))
	for _, s := range stages {
		if s.Name == "" {
			return nil, errors.NewValidationError("stage", s.Name, "stage name is required")
		}
		if _, dup := seen[s.Name]; dup {
			return nil, errors.NewValidationError("stage", s.Name, "duplicate stage")
		}
		seen[s.Name] = struct{}{}
		if s.Candidates == nil {
			return nil, errors.NewValidationError("stage", s.Name, "stage has no source")
		}
		if err := s.Config.Validate(); err != nil {
			return nil, err
		}
	}

	return &Pipeline{store: st, stages: stages, opts: o}, nil
}

// State returns the current state.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes the pipeline once. The returned result is never nil; on
// failure the error is a *errors.StageError naming the failing stage.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.state != StateNotStarted {
		return nil, errors.NewValidationError("state", p.state.String(), "pipeline has already run")
	}

	if p.opts.runID != "" {
		ctx = logging.WithRunID(ctx, p.opts.runID)
	}
	logger := logging.FromContext(ctx)

	result := &Result{
		RunID:     p.opts.runID,
		StartTime: time.Now(),
		Stages:    make([]StageResult, 0, len(p.stages)),
	}
	defer func() { result.Duration = time.Since(result.StartTime) }()

	p.transition(StateAuthenticating, "", nil)
	sess, err := p.store.Authenticate(ctx)
	if err != nil {
		return result, p.fail(result, StageAuthenticate, err)
	}
	logger.Debug().Str("user", sess.User).Msg("Authenticated with record store")

	for _, stage := range p.stages {
		if len(p.opts.only) > 0 && !slices.Contains(p.opts.only, stage.Name) {
			logger.Debug().Str("stage", stage.Name).Msg("Stage not selected, skipping")
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, p.fail(result, stage.Name, errors.Join(errors.ErrCanceled, err))
		}

		p.transition(StateSyncing, stage.Name, nil)
		sr, err := p.runStage(logging.WithStage(ctx, stage.Name), sess, stage)
		if err != nil {
			return result, p.fail(result, stage.Name, err)
		}
		result.Stages = append(result.Stages, sr)
	}

	p.transition(StateDone, "", nil)
	result.State = StateDone
	return result, nil
}

func (p *Pipeline) runStage(ctx context.Context, sess store.Session, stage Stage) (StageResult, error) {
	logger := logging.FromContext(ctx)
	start := time.Now()
	cfg := stage.Config

	plan, err := p.opts.reconciler.Reconcile(ctx, cfg, stage.Candidates,
		func(ctx context.Context) ([]records.Record, error) {
			return p.store.Query(ctx, sess, cfg.Type)
		},
	)
	if err != nil {
		return StageResult{}, err
	}
	if err := plan.Validate(); err != nil {
		return StageResult{}, err
	}

	sr := StageResult{
		Stage:    stage.Name,
		Type:     cfg.Type.String(),
		Matched:  plan.Matched,
		Inserted: plan.Inserted,
		Skipped:  plan.Skipped,
		DryRun:   p.opts.dryRun,
		Plan:     plan,
	}

	if p.opts.dryRun {
		sr.Upserted = len(plan.ToUpsert)
		sr.Deleted = len(plan.ToDelete)
		sr.Duration = time.Since(start)
		logger.Info().Str("plan", plan.String()).Msg("Dry run, skipping writes")
		return sr, nil
	}

	if len(plan.ToUpsert) > 0 {
		saved, err := p.store.Save(ctx, sess, plan.ToUpsert)
		if err != nil {
			return StageResult{}, err
		}
		sr.Upserted = len(saved)
	}
	if len(plan.ToDelete) > 0 {
		if err := p.store.Delete(ctx, sess, plan.ToDelete); err != nil {
			return StageResult{}, err
		}
		sr.Deleted = len(plan.ToDelete)
	}

	sr.Duration = time.Since(start)
	logger.Info().
		Int("upserted", sr.Upserted).
		Int("deleted", sr.Deleted).
		Int("matched", sr.Matched).
		Int("inserted", sr.Inserted).
		Int("skipped", sr.Skipped).
		Dur("duration", sr.Duration).
		Msg("Stage complete")
	return sr, nil
}

func (p *Pipeline) fail(result *Result, stage string, err error) error {
	serr := &errors.StageError{Stage: stage, Err: err}
	result.State = StateFailed
	result.FailedStage = stage
	result.Error = err.Error()
	p.transition(StateFailed, stage, serr)
	return serr
}

func (p *Pipeline) transition(to State, stage string, err error) {
	t := Transition{From: p.state, To: to, Stage: stage, Err: err}
	p.state = to
	if p.opts.onState != nil {
		p.opts.onState(t)
	}
}
