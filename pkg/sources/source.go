// Package sources defines the external sources of the sync and the adapters
// that map their items onto candidate remote records.
//
// A Source fetches items of one shape; an Adapter is a total, side-effect-free
// mapping from one item to a candidate record. Candidates wires the two
// together and applies the ShapePolicy to items the adapter rejects.
package sources

import (
	"context"
	"strings"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/logging"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

// ID identifies an external source.
type ID string

// String returns the string representation of a source ID.
func (id ID) String() string {
	return string(id)
}

// Known source IDs.
const (
	MeetupID ID = "meetup"
	GitHubID ID = "github"
	JobsID   ID = "jobs_feed"
)

// Source fetches the current items of one external source.
type Source[T any] interface {
	ID() ID
	Fetch(ctx context.Context) ([]T, error)
}

// Adapter maps an external item to a candidate record. It returns a
// DataShapeError when the item has no business key and nothing else.
type Adapter[T any] func(item T) (records.Record, error)

// Func adapts a plain function to the Source interface.
type Func[T any] struct {
	Name ID
	Fn   func(ctx context.Context) ([]T, error)
}

// ID implements Source.
func (f Func[T]) ID() ID { return f.Name }

// Fetch implements Source.
func (f Func[T]) Fetch(ctx context.Context) ([]T, error) { return f.Fn(ctx) }

// Static returns a source that always yields items.
func Static[T any](id ID, items ...T) Source[T] {
	return Func[T]{Name: id, Fn: func(context.Context) ([]T, error) { return items, nil }}
}

// ShapePolicy decides what happens to an item the adapter cannot map.
type ShapePolicy int

const (
	// ShapeSkip drops the item, logs it, and continues with the rest.
	ShapeSkip ShapePolicy = iota
	// ShapeAbort fails the whole fetch on the first malformed item.
	ShapeAbort
)

// String returns the config name of the policy.
func (p ShapePolicy) String() string {
	if p == ShapeAbort {
		return "abort"
	}
	return "skip"
}

// ParseShapePolicy parses "skip" or "abort". Empty means skip.
func ParseShapePolicy(s string) (ShapePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "skip":
		return ShapeSkip, nil
	case "abort":
		return ShapeAbort, nil
	default:
		return ShapeSkip, errors.NewValidationError("shape_policy", s, "must be skip or abort")
	}
}

// Batch is the mapped output of one source fetch.
type Batch struct {
	Records []records.Record
	Skipped int
}

// Candidates fetches src and maps every item through adapt, in source order.
func Candidates[T any](ctx context.Context, src Source[T], adapt Adapter[T], policy ShapePolicy) (Batch, error) {
	items, err := src.Fetch(ctx)
	if err != nil {
		return Batch{}, err
	}

	logger := logging.FromContext(ctx)
	batch := Batch{Records: make([]records.Record, 0, len(items))}
	for i, item := range items {
		rec, err := adapt(item)
		if err != nil {
			if policy == ShapeAbort || !errors.IsDataShape(err) {
				return Batch{}, err
			}
			logger.Warn().
				Err(err).
				Str("source", src.ID().String()).
				Int("index", i).
				Msg("Skipping malformed item")
			batch.Skipped++
			continue
		}
		batch.Records = append(batch.Records, rec)
	}

	logger.Debug().
		Str("source", src.ID().String()).
		Int("items", len(items)).
		Int("candidates", len(batch.Records)).
		Msg("Mapped source items")
	return batch, nil
}
