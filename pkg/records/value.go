package records

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"
)

// Kind is the wire type of a field value.
type Kind int

// Field value kinds. The zero Kind is Null.
const (
	KindNull Kind = iota
	KindString
	KindInt64
	KindDouble
	KindTimestamp
	KindLocation
)

// String returns the store type name for the kind.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "STRING"
	case KindInt64:
		return "INT64"
	case KindDouble:
		return "DOUBLE"
	case KindTimestamp:
		return "TIMESTAMP"
	case KindLocation:
		return "LOCATION"
	default:
		return "NULL"
	}
}

// Location is a latitude/longitude pair.
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Value is a single field value. The zero Value is Null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    utc.Time
	loc  Location
}

// Null returns the explicit null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int64 returns an integer value.
func Int64(i int64) Value { return Value{kind: KindInt64, i: i} }

// Double returns a floating point value.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// Timestamp returns a timestamp value, truncated to the store's millisecond precision.
func Timestamp(t utc.Time) Value {
	return Value{kind: KindTimestamp, t: utc.Time{Time: t.Time.Truncate(time.Millisecond)}}
}

// TimestampMillis returns a timestamp from milliseconds since the Unix epoch.
func TimestampMillis(ms int64) Value {
	return Value{kind: KindTimestamp, t: utc.Time{Time: time.UnixMilli(ms).UTC()}}
}

// Geo returns a location value.
func Geo(lat, lon float64) Value {
	return Value{kind: KindLocation, loc: Location{Latitude: lat, Longitude: lon}}
}

// Optional returns String(*s), or Null when s is nil.
func Optional(s *string) Value {
	if s == nil {
		return Null()
	}
	return String(*s)
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.s, v.kind == KindString }

// Int returns the integer payload.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt64 }

// Float returns the floating point payload.
func (v Value) Float() (float64, bool) { return v.f, v.kind == KindDouble }

// Time returns the timestamp payload.
func (v Value) Time() (utc.Time, bool) { return v.t, v.kind == KindTimestamp }

// Location returns the location payload.
func (v Value) Location() (Location, bool) { return v.loc, v.kind == KindLocation }

// Equal reports whether two values have the same kind and payload.
// There is no cross-kind coercion: Int64(42) never equals String("42").
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindInt64:
		return v.i == o.i
	case KindDouble:
		return v.f == o.f
	case KindTimestamp:
		return v.t.Time.Equal(o.t.Time)
	case KindLocation:
		return v.loc == o.loc
	default:
		return true
	}
}

// Interface returns the payload as a plain Go value: string, int64, float64,
// millisecond timestamp (int64), Location, or nil.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt64:
		return v.i
	case KindDouble:
		return v.f
	case KindTimestamp:
		return v.t.Time.UnixMilli()
	case KindLocation:
		return v.loc
	default:
		return nil
	}
}

// GoString formats the value for test failure output.
func (v Value) GoString() string {
	if v.kind == KindNull {
		return "Null"
	}
	return fmt.Sprintf("%s(%v)", v.kind, v.Interface())
}

// MapKey is a comparable form of a Value: two values are Equal exactly when
// their MapKeys are ==.
type MapKey struct {
	kind Kind
	s    string
	i    int64
	f    float64
	loc  Location
}

// MapKey returns the comparable form of v.
func (v Value) MapKey() MapKey {
	switch v.kind {
	case KindString:
		return MapKey{kind: v.kind, s: v.s}
	case KindInt64:
		return MapKey{kind: v.kind, i: v.i}
	case KindDouble:
		return MapKey{kind: v.kind, f: v.f}
	case KindTimestamp:
		return MapKey{kind: v.kind, i: v.t.Time.UnixNano()}
	case KindLocation:
		return MapKey{kind: v.kind, loc: v.loc}
	default:
		return MapKey{}
	}
}
