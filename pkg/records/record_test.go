package records_test

import (
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

func TestFromStoreInvariant(t *testing.T) {
	_, err := records.FromStore(records.Job, "", "v1", nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	r, err := records.FromStore(records.Job, "a", "v1", nil)
	require.NoError(t, err)
	assert.Equal(t, "a", r.Name())
	assert.Equal(t, "v1", r.ChangeTag())

	// identity alone is fine: a record fetched before it was versioned
	_, err = records.FromStore(records.Job, "a", "", nil)
	assert.NoError(t, err)
}

func TestValidateUnknownType(t *testing.T) {
	err := records.New(records.Type("Company"), nil).Validate()
	assert.True(t, errors.IsValidationError(err))
}

func TestAdoptCopiesTokensAndFields(t *testing.T) {
	existing, err := records.FromStore(records.Event, "r1", "v1", records.Fields{
		{Name: "meetup_id", Value: records.String("42")},
	})
	require.NoError(t, err)

	candidate := records.New(records.Event, records.Fields{
		{Name: "meetup_id", Value: records.String("42")},
		{Name: "name", Value: records.String("Meetup")},
	})
	merged := candidate.Adopt(existing)

	assert.Equal(t, "r1", merged.Name())
	assert.Equal(t, "v1", merged.ChangeTag())
	assert.False(t, candidate.HasIdentity(), "adopt must not mutate the candidate")

	merged.Fields.Set("name", records.String("changed"))
	name, _ := candidate.Fields.Get("name")
	assert.True(t, name.Equal(records.String("Meetup")))
}

func TestKeyIgnoresNull(t *testing.T) {
	r := records.New(records.Job, records.Fields{{Name: "link", Value: records.Null()}})
	_, ok := r.Key("link")
	assert.False(t, ok)

	_, ok = records.New(records.Job, nil).Key("link")
	assert.False(t, ok)
}

func TestValueEqual(t *testing.T) {
	ts := utc.Time{Time: time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC)}
	tests := []struct {
		name  string
		a, b  records.Value
		equal bool
	}{
		{"same string", records.String("x"), records.String("x"), true},
		{"case differs", records.String("X"), records.String("x"), false},
		{"kind differs", records.Int64(42), records.String("42"), false},
		{"int", records.Int64(7), records.Int64(7), true},
		{"geo", records.Geo(52.3, 4.9), records.Geo(52.3, 4.9), true},
		{"timestamp", records.Timestamp(ts), records.TimestampMillis(ts.Time.UnixMilli()), true},
		{"nulls", records.Null(), records.Value{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
		})
	}
}

func TestFieldsSetPreservesOrder(t *testing.T) {
	var fs records.Fields
	fs = fs.Set("a", records.Int64(1))
	fs = fs.Set("b", records.Int64(2))
	fs = fs.Set("a", records.Int64(3))

	assert.Equal(t, []string{"a", "b"}, fs.Names())
	v, ok := fs.Get("a")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.Interface())
}
