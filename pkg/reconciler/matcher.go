package reconciler

import (
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

// FindMatches returns every existing record whose key field equals the
// candidate's, in the order given. Matching is exact: same value kind, same
// payload, no case folding. A candidate or record without the key (or with a
// null key) never matches.
func FindMatches(candidate records.Record, key string, existing []records.Record) []records.Record {
	want, ok := candidate.Key(key)
	if !ok {
		return nil
	}
	var matches []records.Record
	for _, r := range existing {
		if got, ok := r.Key(key); ok && got.Equal(want) {
			matches = append(matches, r)
		}
	}
	return matches
}

// SelectPrimary returns the first match. The store's query order is not
// guaranteed to be stable, so with duplicates the chosen identity may change
// between runs; Diff reports duplicate keys so they can be cleaned up.
func SelectPrimary(matches []records.Record) (records.Record, bool) {
	if len(matches) == 0 {
		return records.Record{}, false
	}
	return matches[0], true
}

// Index groups existing records by key for repeated lookups.
type Index struct {
	key     string
	records []records.Record
	byKey   map[records.MapKey][]int
	missing []int
}

// NewIndex indexes existing by the key field. Per-key order follows existing.
func NewIndex(key string, existing []records.Record) *Index {
	ix := &Index{
		key:     key,
		records: existing,
		byKey:   make(map[records.MapKey][]int, len(existing)),
	}
	for i, r := range existing {
		v, ok := r.Key(key)
		if !ok {
			ix.missing = append(ix.missing, i)
			continue
		}
		k := v.MapKey()
		ix.byKey[k] = append(ix.byKey[k], i)
	}
	return ix
}

// Lookup returns the positions in the indexed slice of records matching candidate.
func (ix *Index) Lookup(candidate records.Record) []int {
	v, ok := candidate.Key(ix.key)
	if !ok {
		return nil
	}
	return ix.byKey[v.MapKey()]
}

// Matches returns the records matching candidate, as FindMatches would.
func (ix *Index) Matches(candidate records.Record) []records.Record {
	positions := ix.Lookup(candidate)
	if len(positions) == 0 {
		return nil
	}
	out := make([]records.Record, len(positions))
	for i, p := range positions {
		out[i] = ix.records[p]
	}
	return out
}

// MissingKey returns the number of indexed records without a key.
func (ix *Index) MissingKey() int {
	return len(ix.missing)
}
