package cloudkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

// Field value types on the wire.
const (
	TypeString    = "STRING"
	TypeInt64     = "INT64"
	TypeDouble    = "DOUBLE"
	TypeTimestamp = "TIMESTAMP"
	TypeLocation  = "LOCATION"
)

// FieldValue is the wire form of one field.
type FieldValue struct {
	Value json.RawMessage `json:"value"`
	Type  string          `json:"type,omitempty"`
}

// Record is the wire form of a record.
type Record struct {
	RecordName      string                `json:"recordName,omitempty"`
	RecordType      string                `json:"recordType,omitempty"`
	RecordChangeTag string                `json:"recordChangeTag,omitempty"`
	Fields          map[string]FieldValue `json:"fields,omitempty"`
	Deleted         bool                  `json:"deleted,omitempty"`

	// Set instead of the above when the record was rejected.
	ServerErrorCode string `json:"serverErrorCode,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

var null = json.RawMessage("null")

// EncodeValue converts a value to its wire form. Null encodes as
// {"value": null} so that an update clears the field.
func EncodeValue(v records.Value) (FieldValue, error) {
	var (
		payload any
		typ     string
	)
	switch v.Kind() {
	case records.KindNull:
		return FieldValue{Value: null}, nil
	case records.KindString:
		payload, _ = v.Str()
		typ = TypeString
	case records.KindInt64:
		payload, _ = v.Int()
		typ = TypeInt64
	case records.KindDouble:
		payload, _ = v.Float()
		typ = TypeDouble
	case records.KindTimestamp:
		payload = v.Interface() // milliseconds
		typ = TypeTimestamp
	case records.KindLocation:
		loc, _ := v.Location()
		payload = location{Latitude: loc.Latitude, Longitude: loc.Longitude}
		typ = TypeLocation
	default:
		return FieldValue{}, fmt.Errorf("unsupported value kind %s", v.Kind())
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return FieldValue{}, err
	}
	return FieldValue{Value: raw, Type: typ}, nil
}

// DecodeValue converts a wire field to a value. Types the sync never writes
// (references, assets, lists) report ok=false.
func DecodeValue(f FieldValue) (v records.Value, ok bool, err error) {
	if len(f.Value) == 0 || bytes.Equal(bytes.TrimSpace(f.Value), null) {
		return records.Null(), true, nil
	}

	switch f.Type {
	case TypeString:
		var s string
		err = json.Unmarshal(f.Value, &s)
		v = records.String(s)
	case TypeInt64:
		var n json.Number
		if err = json.Unmarshal(f.Value, &n); err == nil {
			var i int64
			i, err = n.Int64()
			v = records.Int64(i)
		}
	case TypeDouble:
		var d float64
		err = json.Unmarshal(f.Value, &d)
		v = records.Double(d)
	case TypeTimestamp:
		var ms int64
		err = json.Unmarshal(f.Value, &ms)
		v = records.TimestampMillis(ms)
	case TypeLocation:
		var loc location
		err = json.Unmarshal(f.Value, &loc)
		v = records.Geo(loc.Latitude, loc.Longitude)
	default:
		return records.Value{}, false, nil
	}
	if err != nil {
		return records.Value{}, false, errors.WrapParse("json", "cloudkit field of type "+f.Type, err)
	}
	return v, true, nil
}

// EncodeRecord converts a record to its wire form.
func EncodeRecord(r records.Record) (Record, error) {
	out := Record{
		RecordName:      r.Name(),
		RecordType:      r.Type.String(),
		RecordChangeTag: r.ChangeTag(),
		Fields:          make(map[string]FieldValue, len(r.Fields)),
	}
	for _, f := range r.Fields {
		fv, err := EncodeValue(f.Value)
		if err != nil {
			return Record{}, fmt.Errorf("encode field %s: %w", f.Name, err)
		}
		out.Fields[f.Name] = fv
	}
	return out, nil
}

// DecodeRecord converts a wire record to a record. Fields come back sorted by
// name; unsupported field types are dropped.
func DecodeRecord(w Record) (records.Record, error) {
	names := make([]string, 0, len(w.Fields))
	for name := range w.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make(records.Fields, 0, len(names))
	for _, name := range names {
		v, ok, err := DecodeValue(w.Fields[name])
		if err != nil {
			return records.Record{}, fmt.Errorf("record %s field %s: %w", w.RecordName, name, err)
		}
		if !ok {
			continue
		}
		fields = append(fields, records.Field{Name: name, Value: v})
	}
	return records.FromStore(records.Type(w.RecordType), w.RecordName, w.RecordChangeTag, fields)
}
