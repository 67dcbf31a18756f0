package reconciler

import (
	"fmt"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

// Config describes one reconciliation.
type Config struct {
	Type          records.Type
	Key           string // business-key field name
	DeleteOrphans bool
}

// Validate checks that the config names a known type and a key field.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return errors.NewValidationError("Type", string(c.Type), "unknown record type")
	}
	if c.Key == "" {
		return errors.NewValidationError("Key", c.Key, "business key field is required")
	}
	return nil
}

// Plan is the write plan for one record type. ToUpsert and ToDelete are disjoint.
type Plan struct {
	Type     records.Type
	ToUpsert []records.Record
	ToDelete []records.Record

	// Matched counts upserts that adopted an existing identity; Inserted the rest.
	Matched  int
	Inserted int
	// Skipped counts source items dropped as malformed or as a repeat of
	// an earlier candidate's key.
	Skipped int
	// MissingKey counts existing records without the key field.
	MissingKey int
	// Duplicates lists candidate keys that matched more than one existing record.
	Duplicates []string
	// DuplicateCandidates lists, once each, keys the source produced more
	// than once. Only the first candidate per key is planned.
	DuplicateCandidates []string
}

// IsEmpty reports whether the plan requires no writes.
func (p *Plan) IsEmpty() bool {
	return len(p.ToUpsert) == 0 && len(p.ToDelete) == 0
}

// Validate checks that no identity is both upserted and deleted and that
// every record satisfies the identity/version invariant.
func (p *Plan) Validate() error {
	upserted := make(map[string]struct{}, len(p.ToUpsert))
	for _, r := range p.ToUpsert {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.HasIdentity() {
			upserted[r.Name()] = struct{}{}
		}
	}
	for _, r := range p.ToDelete {
		if !r.HasIdentity() {
			return errors.NewValidationError("ToDelete", "", "cannot delete a record without identity")
		}
		if _, ok := upserted[r.Name()]; ok {
			return errors.NewValidationError("ToDelete", r.Name(), "record is also being upserted")
		}
	}
	return nil
}

// String returns a one-line summary of the plan.
func (p *Plan) String() string {
	return fmt.Sprintf("%s: %d to upsert (%d matched, %d new), %d to delete",
		p.Type, len(p.ToUpsert), p.Matched, p.Inserted, len(p.ToDelete))
}
