// Package memory provides an in-memory record store with the same
// identity and versioning rules as the CloudKit store: inserts are assigned
// an identity, every write bumps the change tag, and an update or delete with
// a stale change tag is rejected with a CONFLICT record error.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/agentstation/utc"
	"github.com/google/uuid"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
	"github.com/cocoaheadsnl/cloudsync/pkg/store"
)

// Calls counts the store operations issued against a Store.
type Calls struct {
	Authenticate int
	Query        int
	Save         int
	Delete       int
}

// Writes returns the number of Save and Delete calls.
func (c Calls) Writes() int { return c.Save + c.Delete }

// Op names a store operation for fault injection.
type Op string

// Store operations.
const (
	OpAuthenticate Op = "authenticate"
	OpQuery        Op = "query"
	OpSave         Op = "save"
	OpDelete       Op = "delete"
)

type entry struct {
	typ     records.Type
	fields  records.Fields
	version int
}

// Store is an in-memory store.Store. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	order   []string // identities in insertion order
	entries map[string]*entry
	calls   Calls
	faults  map[Op]error
	user    string
}

var _ store.Store = (*Store)(nil)

// Option is a function that configures a Store.
type Option func(*Store) error

// WithRecords seeds the store with records. Records without an identity are
// assigned one; their change tag is reset to the first version.
func WithRecords(rs ...records.Record) Option {
	return func(s *Store) error {
		for _, r := range rs {
			if err := r.Validate(); err != nil {
				return err
			}
			name := r.Name()
			if name == "" {
				name = uuid.NewString()
			}
			if _, ok := s.entries[name]; ok {
				return fmt.Errorf("seeding memory store: duplicate record %s", name)
			}
			s.put(name, r.Type, r.Fields, 1)
		}
		return nil
	}
}

// WithFault makes every call of op fail wholesale with err.
func WithFault(op Op, err error) Option {
	return func(s *Store) error {
		s.faults[op] = err
		return nil
	}
}

// WithUser sets the identity returned by Authenticate.
func WithUser(user string) Option {
	return func(s *Store) error {
		if user == "" {
			return errors.NewValidationError("user", user, "cannot be empty")
		}
		s.user = user
		return nil
	}
}

// New creates an empty in-memory store.
func New(opts ...Option) (*Store, error) {
	s := &Store{
		entries: make(map[string]*entry),
		faults:  make(map[Op]error),
		user:    "_memory",
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("applying memory option: %w", err)
		}
	}
	return s, nil
}

// Authenticate implements store.Store.
func (s *Store) Authenticate(_ context.Context) (store.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Authenticate++
	if err := s.faults[OpAuthenticate]; err != nil {
		return store.Session{}, &errors.AuthenticationError{Service: "memory", Method: "none", Message: err.Error(), Err: err}
	}
	return store.Session{
		User:        s.user,
		Container:   "memory",
		Environment: "development",
		Established: utc.Now(),
	}, nil
}

// Query implements store.Store.
func (s *Store) Query(_ context.Context, sess store.Session, t records.Type) ([]records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Query++
	if err := s.check(sess, OpQuery); err != nil {
		return nil, err
	}

	var out []records.Record
	for _, name := range s.order {
		e := s.entries[name]
		if e.typ != t {
			continue
		}
		out = append(out, s.record(name, e))
	}
	return out, nil
}

// Save implements store.Store. Accepted records are written even when others
// in the same batch are rejected.
func (s *Store) Save(_ context.Context, sess store.Session, rs []records.Record) ([]records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Save++
	if err := s.check(sess, OpSave); err != nil {
		return nil, &errors.WriteError{Operation: "save", Type: batchType(rs), Err: err}
	}

	saved := make([]records.Record, 0, len(rs))
	var failed []errors.RecordError
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			failed = append(failed, errors.RecordError{Name: r.Name(), Code: errors.CodeBadRequest, Reason: err.Error()})
			continue
		}
		if !r.HasIdentity() {
			name := uuid.NewString()
			s.put(name, r.Type, r.Fields, 1)
			saved = append(saved, s.record(name, s.entries[name]))
			continue
		}
		if rerr := s.checkVersion(r); rerr != nil {
			failed = append(failed, *rerr)
			continue
		}
		e := s.entries[r.Name()]
		e.fields = r.Fields.Clone()
		e.version++
		saved = append(saved, s.record(r.Name(), e))
	}

	if len(failed) > 0 {
		return saved, &errors.WriteError{Operation: "save", Type: batchType(rs), Failed: failed}
	}
	return saved, nil
}

// Delete implements store.Store. An empty change tag deletes unconditionally.
func (s *Store) Delete(_ context.Context, sess store.Session, rs []records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Delete++
	if err := s.check(sess, OpDelete); err != nil {
		return &errors.WriteError{Operation: "delete", Type: batchType(rs), Err: err}
	}

	var failed []errors.RecordError
	for _, r := range rs {
		if !r.HasIdentity() {
			failed = append(failed, errors.RecordError{Code: errors.CodeBadRequest, Reason: "record has no identity"})
			continue
		}
		if rerr := s.checkVersion(r); rerr != nil {
			failed = append(failed, *rerr)
			continue
		}
		s.remove(r.Name())
	}

	if len(failed) > 0 {
		return &errors.WriteError{Operation: "delete", Type: batchType(rs), Failed: failed}
	}
	return nil
}

// Calls returns the operation counts so far.
func (s *Store) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Len returns the number of stored records of type t.
func (s *Store) Len(t records.Type) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.typ == t {
			n++
		}
	}
	return n
}

func (s *Store) check(sess store.Session, op Op) error {
	if !sess.Valid() {
		return &errors.AuthenticationError{Service: "memory", Method: "none", Message: "session not authenticated"}
	}
	return s.faults[op]
}

func (s *Store) checkVersion(r records.Record) *errors.RecordError {
	e, ok := s.entries[r.Name()]
	if !ok || e.typ != r.Type {
		return &errors.RecordError{Name: r.Name(), Code: errors.CodeNotFound, Reason: "record does not exist"}
	}
	if r.ChangeTag() != "" && r.ChangeTag() != tag(e.version) {
		return &errors.RecordError{
			Name:   r.Name(),
			Code:   errors.CodeConflict,
			Reason: fmt.Sprintf("change tag %s is stale, current is %s", r.ChangeTag(), tag(e.version)),
		}
	}
	return nil
}

func (s *Store) put(name string, t records.Type, fields records.Fields, version int) {
	s.entries[name] = &entry{typ: t, fields: fields.Clone(), version: version}
	s.order = append(s.order, name)
}

func (s *Store) remove(name string) {
	delete(s.entries, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Store) record(name string, e *entry) records.Record {
	// entries are always valid: the name is non-empty
	r, _ := records.FromStore(e.typ, name, tag(e.version), e.fields.Clone())
	return r
}

func tag(version int) string {
	return "v" + strconv.Itoa(version)
}

func batchType(rs []records.Record) string {
	if len(rs) == 0 {
		return ""
	}
	return rs[0].Type.String()
}
