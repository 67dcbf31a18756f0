package sources

import (
	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

// Contributor field names.
const (
	FieldContributorID     = "contributor_id"
	FieldContributorAvatar = "avatar_url"
	FieldContributorName   = "name"
	FieldCommitCount       = "commit_count"
	FieldContributorURL    = "url"
)

// Contributor is one repository contributor.
type Contributor struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AvatarURL   string `json:"avatar_url"`
	CommitCount int64  `json:"commit_count"`
	HTMLURL     string `json:"html_url"`
}

// ContributorRecord maps a contributor to a candidate Contributor record.
func ContributorRecord(c Contributor) (records.Record, error) {
	if c.ID == 0 {
		return records.Record{}, errors.NewDataShapeError(records.Contributor.String(), FieldContributorID, "contributor has no id")
	}
	return records.New(records.Contributor, records.Fields{
		{Name: FieldContributorID, Value: records.Int64(c.ID)},
		{Name: FieldContributorAvatar, Value: nullable(c.AvatarURL)},
		{Name: FieldContributorName, Value: nullable(c.Name)},
		{Name: FieldCommitCount, Value: records.Int64(c.CommitCount)},
		{Name: FieldContributorURL, Value: nullable(c.HTMLURL)},
	}), nil
}
