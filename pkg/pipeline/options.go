package pipeline

import (
	"slices"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/reconciler"
)

// options configures a pipeline.
type options struct {
	dryRun     bool
	onState    func(Transition)
	only       []string
	reconciler reconciler.Reconciler
	runID      string
}

// Option is a function that configures a Pipeline.
type Option func(*options) error

func defaultOptions() *options {
	return &options{}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// WithDryRun computes plans without writing them.
func WithDryRun(dryRun bool) Option {
	return func(o *options) error {
		o.dryRun = dryRun
		return nil
	}
}

// WithOnState registers a hook called synchronously on every state change.
func WithOnState(fn func(Transition)) Option {
	return func(o *options) error {
		o.onState = fn
		return nil
	}
}

// WithOnly restricts the run to the named stages. Order is unaffected.
func WithOnly(stages ...string) Option {
	return func(o *options) error {
		for _, s := range stages {
			if !slices.Contains(Order, s) {
				return errors.NewValidationError("stage", s, "unknown stage")
			}
		}
		o.only = stages
		return nil
	}
}

// WithReconciler replaces the default reconciler.
func WithReconciler(r reconciler.Reconciler) Option {
	return func(o *options) error {
		if r == nil {
			return errors.NewValidationError("reconciler", nil, "cannot be nil")
		}
		o.reconciler = r
		return nil
	}
}

// WithRunID sets the run identifier reported in the result and logs.
func WithRunID(id string) Option {
	return func(o *options) error {
		o.runID = id
		return nil
	}
}
