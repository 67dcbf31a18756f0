package sources

import (
	"time"

	"github.com/agentstation/utc"

	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

// Job field names.
const (
	FieldJobLink    = "link"
	FieldJobTitle   = "title"
	FieldJobContent = "content"
	FieldJobAuthor  = "author"
	FieldJobLogoURL = "logoUrl"
	FieldJobDate    = "date"
)

// Job is one posting from the jobs feed.
type Job struct {
	Link    string
	Title   string
	Content string
	Author  string
	LogoURL string
	Date    *time.Time
}

// JobRecord maps a feed item to a candidate Job record. The link is the
// business key and is used verbatim.
func JobRecord(j Job) (records.Record, error) {
	if j.Link == "" {
		return records.Record{}, errors.NewDataShapeError(records.Job.String(), FieldJobLink, "job has no link")
	}

	date := records.Null()
	if j.Date != nil && !j.Date.IsZero() {
		date = records.Timestamp(utc.Time{Time: j.Date.UTC()})
	}

	return records.New(records.Job, records.Fields{
		{Name: FieldJobLink, Value: records.String(j.Link)},
		{Name: FieldJobTitle, Value: nullable(j.Title)},
		{Name: FieldJobContent, Value: nullable(j.Content)},
		{Name: FieldJobAuthor, Value: nullable(j.Author)},
		{Name: FieldJobLogoURL, Value: nullable(j.LogoURL)},
		{Name: FieldJobDate, Value: date},
	}), nil
}
