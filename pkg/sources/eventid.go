package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

// EventID is an event identifier as the API sent it. A JSON number decodes
// to an INT64 key and a JSON string stays a STRING key, so 42 and "42" are
// distinct identities.
type EventID struct {
	v records.Value
}

// StringID returns a string identifier. The empty string is the zero EventID.
func StringID(s string) EventID {
	if s == "" {
		return EventID{}
	}
	return EventID{v: records.String(s)}
}

// NumericID returns an integer identifier.
func NumericID(n int64) EventID { return EventID{v: records.Int64(n)} }

// IsZero reports whether the identifier is absent.
func (id EventID) IsZero() bool { return id.v.IsNull() }

// Value returns the identifier as a record value.
func (id EventID) Value() records.Value { return id.v }

// String returns the identifier's text form.
func (id EventID) String() string {
	if id.IsZero() {
		return ""
	}
	return fmt.Sprint(id.v.Interface())
}

// UnmarshalJSON accepts a JSON string, an integral number, or null.
func (id *EventID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = EventID{}
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("event id %s is neither a string nor an integer", b)
	}
	*id = NumericID(n)
	return nil
}

// MarshalJSON writes the identifier back in the kind it was decoded from.
func (id EventID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.v.Interface())
}
