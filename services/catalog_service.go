package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/shopspring/decimal"

	"event-booker/internal/status"
	"event-booker/models"
	"event-booker/store"
)

// recommendationLimit caps how many events the popularity ranking returns.
const recommendationLimit = 3

// DayBucket is one day of the calendar month view: how many events fall on
// that day and which ones, in stored order.
type DayBucket struct {
	Day    time.Time            `json:"day"`
	Count  int                  `json:"count"`
	Events []models.EventRecord `json:"events"`
}

// CatalogService derives read-only views of the event collection. Every
// operation snapshots the store first and then computes over the immutable
// copy; a concurrent write can never corrupt an in-progress view.
type CatalogService struct {
	store store.EventStore
}

func NewCatalogService(eventStore store.EventStore) *CatalogService {
	return &CatalogService{store: eventStore}
}

// Snapshot lists the stored collection and normalizes it into canonical
// records.
func (s *CatalogService) Snapshot(ctx context.Context) ([]models.EventRecord, error) {
	raws, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(raws), nil
}

// ByID finds one event in the current snapshot.
func (s *CatalogService) ByID(ctx context.Context, id int64) (models.EventRecord, error) {
	events, err := s.Snapshot(ctx)
	if err != nil {
		return models.EventRecord{}, err
	}
	for _, ev := range events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return models.EventRecord{}, status.ErrEventNotFound
}

// Normalize coerces raw stored records into canonical EventRecords: one
// output per input, in input order. Malformed dates become the missing-date
// sentinel instead of an error; absent times default to the empty sentinel.
func Normalize(raws []models.RawRecord) []models.EventRecord {
	events := make([]models.EventRecord, 0, len(raws))
	for _, raw := range raws {
		events = append(events, normalizeOne(raw))
	}
	return events
}

func normalizeOne(raw models.RawRecord) models.EventRecord {
	rec := models.EventRecord{
		ID:          asInt64(raw["id"]),
		Title:       asString(raw["title"]),
		Price:       asDecimal(raw["price"]),
		Date:        normalizeDate(raw["date"]),
		Time:        asString(raw["time"]),
		Duration:    int(asInt64(raw["duration"])),
		Description: asString(raw["description"]),
		ImageURL:    asString(raw["imageUrl"]),
		Location:    asString(raw["location"]),
	}
	rec.MaxAttendees = asIntPtr(raw["maxAttendees"])
	rec.CurrentAttendees = asIntPtr(raw["currentAttendees"])
	return rec
}

func normalizeDate(v any) *time.Time {
	switch d := v.(type) {
	case string:
		return models.ParseStoredDate(d)
	case float64:
		// Millisecond epoch, the id-style timestamp some stored blobs carry.
		t := time.UnixMilli(int64(d)).UTC()
		return &t
	default:
		return nil
	}
}

// CalendarMonth buckets events into the days of ref's UTC month, one bucket
// per day from the 1st through the last day inclusive. A single grouping
// pass keyed by day keeps this linear in days plus events. Events without a
// date contribute to no bucket.
func CalendarMonth(events []models.EventRecord, ref time.Time) []DayBucket {
	ref = ref.UTC()
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()

	buckets := make([]DayBucket, days)
	for i := range buckets {
		buckets[i] = DayBucket{Day: first.AddDate(0, 0, i), Events: []models.EventRecord{}}
	}

	for _, ev := range events {
		if ev.Date == nil {
			continue
		}
		d := ev.Date.UTC()
		if d.Year() != first.Year() || d.Month() != first.Month() {
			continue
		}
		i := d.Day() - 1
		buckets[i].Events = append(buckets[i].Events, ev)
		buckets[i].Count++
	}
	return buckets
}

// FilterByDay returns the events falling on the target UTC calendar day,
// order preserved. Records without a date are never included.
func FilterByDay(events []models.EventRecord, day time.Time) []models.EventRecord {
	out := []models.EventRecord{}
	for _, ev := range events {
		if ev.Date != nil && models.SameDay(*ev.Date, day) {
			out = append(out, ev)
		}
	}
	return out
}

// Search returns the events whose title or description contains the query,
// case-folded. An empty query matches everything; a missing description is
// just an empty string, never a fault.
func Search(events []models.EventRecord, query string) []models.EventRecord {
	if query == "" {
		return events
	}
	q := strings.ToLower(query)

	out := []models.EventRecord{}
	for _, ev := range events {
		if strings.Contains(strings.ToLower(ev.Title), q) ||
			strings.Contains(strings.ToLower(ev.Description), q) {
			out = append(out, ev)
		}
	}
	return out
}

// Recommend ranks events by descending attendance ratio and returns the top
// three. Events without a defined ratio are ineligible; ties keep stored
// order. Zero eligible events is a valid outcome, not an error.
func Recommend(events []models.EventRecord) []models.EventRecord {
	type ranked struct {
		ev    models.EventRecord
		ratio float64
	}

	eligible := []ranked{}
	for _, ev := range events {
		if ratio, ok := ev.AttendanceRatio(); ok {
			eligible = append(eligible, ranked{ev: ev, ratio: ratio})
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].ratio > eligible[j].ratio
	})

	n := len(eligible)
	if n > recommendationLimit {
		n = recommendationLimit
	}
	out := make([]models.EventRecord, 0, n)
	for _, r := range eligible[:n] {
		out = append(out, r.ev)
	}
	return out
}

// MonthICS serializes the dated events of ref's month as an iCalendar feed.
func MonthICS(events []models.EventRecord, ref time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//event-booker//calendar//EN")

	for _, bucket := range CalendarMonth(events, ref) {
		for _, ev := range bucket.Events {
			item := cal.AddEvent(fmt.Sprintf("%d@event-booker", ev.ID))
			item.SetSummary(ev.Title)
			item.SetStartAt(ev.Date.UTC())
			if end, ok := ev.EndTime(); ok {
				item.SetEndAt(end.UTC())
			}
			if ev.Description != "" {
				item.SetDescription(ev.Description)
			}
			if ev.Location != "" {
				item.SetLocation(ev.Location)
			}
			if !ev.Price.Equal(decimal.Zero) {
				item.SetProperty(ics.ComponentProperty("X-TICKET-PRICE"), ev.Price.String())
			}
		}
	}
	return cal.Serialize()
}
