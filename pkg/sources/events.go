package sources

import (
	"github.com/cocoaheadsnl/cloudsync/pkg/errors"
	"github.com/cocoaheadsnl/cloudsync/pkg/records"
)

// Event field names on Meetup records.
const (
	FieldMeetupID          = "meetup_id"
	FieldEventName         = "name"
	FieldEventDescription  = "meetup_description"
	FieldEventLocationName = "locationName"
	FieldEventGeoLocation  = "geoLocation"
	FieldEventLocation     = "location"
	FieldEventTime         = "time"
	FieldEventDuration     = "duration"
	FieldEventYesRSVPCount = "yes_rsvp_count"
	FieldEventRSVPLimit    = "rsvp_limit"
	FieldEventURL          = "meetup_url"
	FieldEventNextEvent    = "nextEvent"
)

// Venue is where an event takes place.
type Venue struct {
	Name string  `json:"name"`
	City string  `json:"city"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Event is one item of the events API.
type Event struct {
	ID           EventID `json:"id"`
	Name         string  `json:"name"`
	Description  *string `json:"description"`
	Venue        *Venue  `json:"venue"`
	Time         int64   `json:"time"` // ms since epoch
	Duration     *int64  `json:"duration"`
	YesRSVPCount int64   `json:"yes_rsvp_count"`
	RSVPLimit    *int64  `json:"rsvp_limit"`
	EventURL     string  `json:"event_url"`
}

// EventRecord maps an event to a candidate Meetup record. A missing venue
// yields explicit nulls for the three venue fields so an update clears them.
func EventRecord(e Event) (records.Record, error) {
	if e.ID.IsZero() {
		return records.Record{}, errors.NewDataShapeError(records.Event.String(), FieldMeetupID, "event has no id")
	}

	locationName, geoLocation, location := records.Null(), records.Null(), records.Null()
	if e.Venue != nil {
		locationName = records.String(e.Venue.Name)
		geoLocation = records.Geo(e.Venue.Lat, e.Venue.Lon)
		location = records.String(e.Venue.City)
	}

	start := records.Null()
	if e.Time != 0 {
		start = records.TimestampMillis(e.Time)
	}

	return records.New(records.Event, records.Fields{
		{Name: FieldMeetupID, Value: e.ID.Value()},
		{Name: FieldEventName, Value: records.String(e.Name)},
		{Name: FieldEventDescription, Value: records.Optional(e.Description)},
		{Name: FieldEventLocationName, Value: locationName},
		{Name: FieldEventGeoLocation, Value: geoLocation},
		{Name: FieldEventLocation, Value: location},
		{Name: FieldEventTime, Value: start},
		{Name: FieldEventDuration, Value: optionalInt(e.Duration)},
		{Name: FieldEventYesRSVPCount, Value: records.Int64(e.YesRSVPCount)},
		{Name: FieldEventRSVPLimit, Value: optionalInt(e.RSVPLimit)},
		{Name: FieldEventURL, Value: nullable(e.EventURL)},
		{Name: FieldEventNextEvent, Value: records.Int64(0)},
	}), nil
}

func optionalInt(i *int64) records.Value {
	if i == nil {
		return records.Null()
	}
	return records.Int64(*i)
}

// nullable maps the empty string to Null.
func nullable(s string) records.Value {
	if s == "" {
		return records.Null()
	}
	return records.String(s)
}
