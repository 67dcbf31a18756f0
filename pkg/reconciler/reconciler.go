// Package reconciler computes write plans that bring a remote record set in
// line with a freshly fetched source set. Records are matched on a business
// key; matched candidates adopt the remote identity and version token so the
// store treats them as updates, and unmatched remote records can be marked
// for deletion.
package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
	"github.com/cocoaheadsnl/cloudsync/pkg/sources"
)

// CandidateFetcher produces the mapped source records for one reconciliation.
type CandidateFetcher func(ctx context.Context) (sources.Batch, error)

// ExistingFetcher produces the remote records of one type.
type ExistingFetcher func(ctx context.Context) ([]records.Record, error)

// Reconciler is the main interface for reconciling a source set against a remote set.
type Reconciler interface {
	// Diff computes the plan for already fetched inputs. It performs no I/O.
	Diff(cfg Config, candidates, existing []records.Record) (*Plan, error)

	// Reconcile fetches both sides concurrently and returns the plan.
	Reconcile(ctx context.Context, cfg Config, candidates CandidateFetcher, existing ExistingFetcher) (*Plan, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	selector Selector
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{selector: options.selector}, nil
}

// Diff computes a plan with the default selector.
func Diff(cfg Config, candidates, existing []records.Record) (*Plan, error) {
	r := &reconciler{selector: SelectPrimary}
	return r.Diff(cfg, candidates, existing)
}

// Diff implements Reconciler.
func (r *reconciler) Diff(cfg Config, candidates, existing []records.Record) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ix := NewIndex(cfg.Key, existing)
	consumed := make([]bool, len(existing))
	seen := make(map[records.MapKey]struct{}, len(candidates))
	dupCandidates := make(map[records.MapKey]struct{})

	plan := &Plan{
		Type:       cfg.Type,
		ToUpsert:   make([]records.Record, 0, len(candidates)),
		MissingKey: ix.MissingKey(),
	}

	for _, c := range candidates {
		if c.Type != cfg.Type {
			return nil, errors.NewValidationError("Type", string(c.Type),
				fmt.Sprintf("candidate does not belong to %s", cfg.Type))
		}

		key, hasKey := c.Key(cfg.Key)
		if hasKey {
			// A repeated key keeps its first candidate; later ones would
			// adopt the same identity and conflict with it on save.
			mk := key.MapKey()
			if _, dup := seen[mk]; dup {
				if _, reported := dupCandidates[mk]; !reported {
					dupCandidates[mk] = struct{}{}
					plan.DuplicateCandidates = append(plan.DuplicateCandidates, fmt.Sprint(key.Interface()))
				}
				plan.Skipped++
				continue
			}
			seen[mk] = struct{}{}
		}

		positions := ix.Lookup(c)
		for _, p := range positions {
			consumed[p] = true
		}
		if hasKey && len(positions) > 1 {
			plan.Duplicates = append(plan.Duplicates, fmt.Sprint(key.Interface()))
		}

		primary, ok := r.selector(ix.Matches(c))
		if ok {
			plan.ToUpsert = append(plan.ToUpsert, c.Adopt(primary))
			plan.Matched++
			continue
		}
		plan.ToUpsert = append(plan.ToUpsert, c)
		plan.Inserted++
	}

	if cfg.DeleteOrphans {
		for i, e := range existing {
			if !consumed[i] {
				plan.ToDelete = append(plan.ToDelete, e)
			}
		}
	}

	return plan, nil
}

// Reconcile implements Reconciler.
func (r *reconciler) Reconcile(ctx context.Context, cfg Config, candidates CandidateFetcher, existing ExistingFetcher) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if candidates == nil || existing == nil {
		return nil, errors.NewValidationError("fetcher", nil, "both fetchers are required")
	}

	ctx = logging.WithRecordType(ctx, cfg.Type.String())
	logger := logging.FromContext(ctx)
	start := time.Now()

	var (
		batch  sources.Batch
		remote []records.Record
	)

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		batch, err = candidates(ctx)
		if err != nil {
			return errors.NewFetchError(errors.SideSource, cfg.Type.String(), err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		var err error
		remote, err = existing(ctx)
		if err != nil {
			return errors.NewFetchError(errors.SideStore, cfg.Type.String(), err)
		}
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	plan, err := r.Diff(cfg, batch.Records, remote)
	if err != nil {
		return nil, err
	}
	plan.Skipped += batch.Skipped

	if len(plan.Duplicates) > 0 {
		logger.Warn().
			Strs("keys", plan.Duplicates).
			Msg("Multiple remote records share a business key; the first returned was kept")
	}
	if len(plan.DuplicateCandidates) > 0 {
		logger.Warn().
			Strs("keys", plan.DuplicateCandidates).
			Msg("Source returned the same business key more than once; later items were skipped")
	}
	if plan.MissingKey > 0 {
		logger.Warn().
			Int("count", plan.MissingKey).
			Str("key", cfg.Key).
			Bool("deleted", cfg.DeleteOrphans).
			Msg("Remote records missing key")
	}

	logger.Debug().
		Int("candidates", len(batch.Records)).
		Int("existing", len(remote)).
		Int("upsert", len(plan.ToUpsert)).
		Int("delete", len(plan.ToDelete)).
		Dur("duration", time.Since(start)).
		Msg("Reconciled")

	return plan, nil
}
