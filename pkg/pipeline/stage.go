package pipeline

import (
	"context"

	"github.com/cocoaheadsnl/cloudsync/pkg/reconciler"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
)

// Stage names, in the order the pipeline runs them.
const (
	StageContributors = "contributors"
	StageEvents       = "events"
	StageJobs         = "jobs"
)

// StageAuthenticate identifies a failure while establishing the session.
const StageAuthenticate = "authenticate"

// Order is the fixed stage order.
var Order = []string{StageContributors, StageEvents, StageJobs}

// Stage is one reconciliation of the pipeline.
type Stage struct {
	Name       string
	Config     reconciler.Config
	Candidates reconciler.CandidateFetcher
}

// NewStage binds a source and its adapter to a reconciliation config.
func NewStage[T any](name string, src sources.Source[T], adapt sources.Adapter[T], cfg reconciler.Config, policy sources.ShapePolicy) Stage {
	return Stage{
		Name:   name,
		Config: cfg,
		Candidates: func(ctx context.Context) (sources.Batch, error) {
			return sources.Candidates(ctx, src, adapt, policy)
		},
	}
}
