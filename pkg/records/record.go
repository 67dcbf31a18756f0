// Package records defines the remote record model exchanged with the remote store.
//
// A Record is a typed, ordered set of fields plus two opaque tokens assigned by
// the store: the identity (record name) and the version (change tag). Records
// built locally from an external item never carry tokens; tokens only enter a
// record through FromStore or by adopting them from a fetched record.
package records

import (
	"slices"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
)

// Type is the remote record type.
type Type string

// Record types, named as the remote store knows them.
const (
	Event       Type = "Meetup"
	Contributor Type = "Contributor"
	Job         Type = "Job"
)

// Types returns all record types.
func Types() []Type {
	return []Type{Event, Contributor, Job}
}

// IsValid reports whether t is a known record type.
func (t Type) IsValid() bool {
	return slices.Contains(Types(), t)
}

// String returns the wire name of the type.
func (t Type) String() string {
	return string(t)
}

// Record is a remote record.
type Record struct {
	Type   Type
	Fields Fields

	name      string
	changeTag string
}

// New returns a record with no identity or version, as produced by a source adapter.
func New(t Type, fields Fields) Record {
	return Record{Type: t, Fields: fields}
}

// FromStore returns a record carrying tokens assigned by the remote store.
// A version without an identity is rejected.
func FromStore(t Type, name, changeTag string, fields Fields) (Record, error) {
	r := Record{Type: t, Fields: fields, name: name, changeTag: changeTag}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Name returns the store identity, empty if the record was never written.
func (r Record) Name() string { return r.name }

// ChangeTag returns the store version token, empty if unknown.
func (r Record) ChangeTag() string { return r.changeTag }

// HasIdentity reports whether the store has assigned an identity.
func (r Record) HasIdentity() bool { return r.name != "" }

// Adopt returns a copy of r carrying from's identity and version, so that
// writing it is an update of from rather than an insert.
func (r Record) Adopt(from Record) Record {
	r.Fields = r.Fields.Clone()
	r.name = from.name
	r.changeTag = from.changeTag
	return r
}

// Validate checks the identity/version invariant and the record type.
func (r Record) Validate() error {
	if !r.Type.IsValid() {
		return errors.NewValidationError("recordType", string(r.Type), "unknown record type")
	}
	if r.changeTag != "" && r.name == "" {
		return errors.NewValidationError("recordChangeTag", r.changeTag, "version present without identity")
	}
	return nil
}

// Key returns the value of the business-key field. A missing or null key
// reports false.
func (r Record) Key(field string) (Value, bool) {
	v, ok := r.Fields.Get(field)
	if !ok || v.IsNull() {
		return Value{}, false
	}
	return v, true
}
