package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord is the untyped shape of an event as it sits in the store blob.
// Fields may be missing, of the wrong JSON type, or hold unparseable values;
// the catalog normalizer is the only component that interprets them.
type RawRecord map[string]any

// EventRecord is the canonical, normalized representation of a bookable event.
// A nil Date means the stored date was absent or unparseable; such records are
// excluded from every date-keyed computation but must still render safely.
type EventRecord struct {
	ID               int64           `json:"id"`
	Title            string          `json:"title"`
	Price            decimal.Decimal `json:"price"`
	Date             *time.Time      `json:"date,omitempty"`
	Time             string          `json:"time,omitempty"` // HH:MM, "" when absent
	Duration         int             `json:"duration,omitempty"` // minutes, 0 when absent
	MaxAttendees     *int            `json:"maxAttendees,omitempty"`
	CurrentAttendees *int            `json:"currentAttendees,omitempty"`
	Description      string          `json:"description,omitempty"`
	ImageURL         string          `json:"imageUrl,omitempty"`
	Location         string          `json:"location,omitempty"`
}

// EventInput is the admin-supplied subset of fields for creating a new event.
// Date carries the full event timestamp (calendar day combined with the
// HH:MM time field) by the time it reaches the store.
type EventInput struct {
	Title            string          `json:"title"`
	Price            decimal.Decimal `json:"price"`
	Date             string          `json:"date,omitempty"`
	Time             string          `json:"time,omitempty"`
	Duration         int             `json:"duration,omitempty"`
	MaxAttendees     int             `json:"maxAttendees,omitempty"`
	CurrentAttendees int             `json:"currentAttendees"`
	Description      string          `json:"description,omitempty"`
	ImageURL         string          `json:"imageUrl,omitempty"`
	Location         string          `json:"location,omitempty"`
}

// HasDate reports whether the record carries a usable calendar date.
func (e *EventRecord) HasDate() bool {
	return e.Date != nil
}

// DisplayDate renders the event date for presentation. Records without a
// usable date render as "N/A" instead of failing.
func (e *EventRecord) DisplayDate() string {
	if e.Date == nil {
		return "N/A"
	}
	return e.Date.UTC().Format("January 2, 2006")
}

// AttendanceRatio returns currentAttendees/maxAttendees. The ratio is defined
// only when both fields are present and maxAttendees is positive; ok is false
// otherwise and the record is ineligible for ranking.
func (e *EventRecord) AttendanceRatio() (float64, bool) {
	if e.MaxAttendees == nil || e.CurrentAttendees == nil || *e.MaxAttendees <= 0 {
		return 0, false
	}
	return float64(*e.CurrentAttendees) / float64(*e.MaxAttendees), true
}

// EndTime computes the event's end timestamp from its start and duration.
// Undefined (ok=false) when the record has no date or no duration.
func (e *EventRecord) EndTime() (time.Time, bool) {
	if e.Date == nil || e.Duration <= 0 {
		return time.Time{}, false
	}
	return e.Date.Add(time.Duration(e.Duration) * time.Minute), true
}

// dateLayouts are the stored date shapes the normalizer accepts: RFC3339
// timestamps (what the admin controller writes), bare calendar days, and the
// legacy millisecond-precision form.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// ParseStoredDate parses a stored date string into a UTC timestamp. A nil
// result is the missing-date sentinel; malformed input is never an error.
func ParseStoredDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

// CombineDateTime merges a calendar day ("2006-01-02") with an HH:MM time of
// day into one UTC timestamp: the day at midnight with hours and minutes
// overridden from the time field.
func CombineDateTime(day, hhmm string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		return time.Time{}, err
	}
	tod, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), 0, 0, time.UTC), nil
}

// SameDay reports whether two timestamps fall on the same UTC calendar day.
// All date-keyed logic in the catalog uses UTC days, never local time.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
