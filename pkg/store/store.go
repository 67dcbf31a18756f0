// Package store defines the remote record store the sync pipeline writes to.
package store

import (
	"context"

	"github.com/agentstation/utc"

	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

// Session is an authenticated handle on a remote store. It is obtained once
// per run and passed explicitly to every store call.
type Session struct {
	// User is the identity the store authenticated, e.g. a CloudKit user record name.
	User string
	// Container and Environment describe the database the session targets.
	Container   string
	Environment string
	// Established is when the session was created.
	Established utc.Time
}

// Valid reports whether the session was produced by Authenticate.
func (s Session) Valid() bool {
	return s.User != ""
}

// Store is a remote record store.
//
// Save and Delete either fail wholesale, returning a *errors.WriteError with
// Err set, or report the records the store rejected in WriteError.Failed.
// Records not listed in Failed were written.
type Store interface {
	// Authenticate establishes the session used by every other call.
	Authenticate(ctx context.Context) (Session, error)

	// Query returns every record of the given type, in store order.
	Query(ctx context.Context, s Session, t records.Type) ([]records.Record, error)

	// Save creates records without an identity and updates the rest. Updates
	// must carry the current change tag. The written records are returned
	// with their new tokens.
	Save(ctx context.Context, s Session, rs []records.Record) ([]records.Record, error)

	// Delete removes records by identity.
	Delete(ctx context.Context, s Session, rs []records.Record) error
}

// Batch splits rs into consecutive slices of at most size records. The
// store implementations use it to respect per-request limits.
func Batch(rs []records.Record, size int) [][]records.Record {
	if size <= 0 || len(rs) <= size {
		if len(rs) == 0 {
			return nil
		}
		return [][]records.Record{rs}
	}
	out := make([][]records.Record, 0, (len(rs)+size-1)/size)
	for len(rs) > size {
		out = append(out, rs[:size])
		rs = rs[size:]
	}
	return append(out, rs)
}
