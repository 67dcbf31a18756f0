package pipeline

import (
	"time"

	"github.com/cocoaheadsnl/cloudsync/pkg/reconciler"
)

// StageResult summarizes one completed stage.
type StageResult struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Type     string        `json:"record_type" yaml:"record_type"`
	Upserted int           `json:"upserted" yaml:"upserted"`
	Deleted  int           `json:"deleted" yaml:"deleted"`
	Matched  int           `json:"matched" yaml:"matched"`
	Inserted int           `json:"inserted" yaml:"inserted"`
	Skipped  int           `json:"skipped" yaml:"skipped"`
	DryRun   bool          `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Plan is the write plan the stage executed.
	Plan *reconciler.Plan `json:"-" yaml:"-"`
}

// Result is the outcome of a run.
type Result struct {
	RunID       string        `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	State       State         `json:"state" yaml:"state"`
	FailedStage string        `json:"failed_stage,omitempty" yaml:"failed_stage,omitempty"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
	Stages      []StageResult `json:"stages" yaml:"stages"`
	StartTime   time.Time     `json:"start_time" yaml:"start_time"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
}

// Succeeded reports whether every stage completed.
func (r *Result) Succeeded() bool {
	return r.State == StateDone
}

// Totals sums the per-stage counts.
func (r *Result) Totals() StageResult {
	var t StageResult
	for _, s := range r.Stages {
		t.Upserted += s.Upserted
		t.Deleted += s.Deleted
		t.Matched += s.Matched
		t.Inserted += s.Inserted
		t.Skipped += s.Skipped
		t.Duration += s.Duration
	}
	return t
}
