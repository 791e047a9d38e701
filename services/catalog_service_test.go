package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-booker/internal/status"
	"event-booker/models"
	"event-booker/store"
)

// fakeEventStore serves canned raw records for read-side tests.
type fakeEventStore struct {
	raws []models.RawRecord
	err  error
}

func (f *fakeEventStore) List(ctx context.Context) ([]models.RawRecord, error) {
	return f.raws, f.err
}

func (f *fakeEventStore) Append(ctx context.Context, in models.EventInput) (models.EventRecord, error) {
	return models.EventRecord{}, nil
}

func (f *fakeEventStore) Clear(ctx context.Context) error { return nil }

func (f *fakeEventStore) Subscribe() (<-chan store.ChangeEvent, func()) {
	ch := make(chan store.ChangeEvent)
	return ch, func() { close(ch) }
}

func datePtr(t time.Time) *time.Time { return &t }

func intPtr(n int) *int { return &n }

func TestNormalize_CoercesRawShapes(t *testing.T) {
	raws := []models.RawRecord{
		{
			"id":               float64(1),
			"title":            "Jazz Night",
			"price":            float64(25.5),
			"date":             "2024-06-15T19:00:00Z",
			"time":             "19:00",
			"duration":         float64(120),
			"maxAttendees":     float64(40),
			"currentAttendees": float64(28),
			"description":      "Live jazz downtown",
			"imageUrl":         "https://example.com/jazz.jpg",
			"location":         "Blue Note",
		},
		{
			"id":    float64(2),
			"title": "Legacy Record",
			"price": "12.00",
			"date":  float64(1718452800000),
		},
	}

	events := Normalize(raws)

	require.Len(t, events, 2)

	assert.Equal(t, int64(1), events[0].ID)
	assert.Equal(t, "Jazz Night", events[0].Title)
	assert.True(t, events[0].Price.Equal(decimal.NewFromFloat(25.5)))
	require.NotNil(t, events[0].Date)
	assert.Equal(t, time.Date(2024, 6, 15, 19, 0, 0, 0, time.UTC), events[0].Date.UTC())
	assert.Equal(t, "19:00", events[0].Time)
	assert.Equal(t, 120, events[0].Duration)
	require.NotNil(t, events[0].MaxAttendees)
	assert.Equal(t, 40, *events[0].MaxAttendees)

	// String price and millisecond-epoch date both coerce.
	assert.True(t, events[1].Price.Equal(decimal.NewFromInt(12)))
	require.NotNil(t, events[1].Date)
	assert.Equal(t, 2024, events[1].Date.UTC().Year())
	assert.Nil(t, events[1].MaxAttendees)
}

func TestNormalize_MalformedDateBecomesMissing(t *testing.T) {
	raws := []models.RawRecord{
		{"id": float64(1), "title": "Broken", "date": "not-a-date"},
		{"id": float64(2), "title": "Dateless"},
	}

	events := Normalize(raws)

	require.Len(t, events, 2)
	assert.Nil(t, events[0].Date)
	assert.Nil(t, events[1].Date)
	assert.Equal(t, "N/A", events[0].DisplayDate())
}

func TestNormalize_PreservesOrderAndCount(t *testing.T) {
	raws := []models.RawRecord{
		{"id": float64(3), "title": "C"},
		{"id": float64(1), "title": "A"},
		{"id": float64(2), "title": "B"},
	}

	events := Normalize(raws)

	require.Len(t, events, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{events[0].ID, events[1].ID, events[2].ID})
}

func TestCatalogService_ByID(t *testing.T) {
	svc := NewCatalogService(&fakeEventStore{raws: []models.RawRecord{
		{"id": float64(1), "title": "One"},
		{"id": float64(2), "title": "Two"},
	}})

	ev, err := svc.ByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Two", ev.Title)

	_, err = svc.ByID(context.Background(), 99)
	assert.ErrorIs(t, err, status.ErrEventNotFound)
}

func TestCalendarMonth_BucketsCoverWholeMonth(t *testing.T) {
	events := []models.EventRecord{
		{ID: 1, Title: "First", Date: datePtr(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))},
		{ID: 2, Title: "Mid A", Date: datePtr(time.Date(2024, 6, 15, 19, 0, 0, 0, time.UTC))},
		{ID: 3, Title: "Mid B", Date: datePtr(time.Date(2024, 6, 15, 21, 0, 0, 0, time.UTC))},
		{ID: 4, Title: "Other Month", Date: datePtr(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))},
		{ID: 5, Title: "Dateless"},
	}

	buckets := CalendarMonth(events, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))

	require.Len(t, buckets, 30)
	assert.Equal(t, 1, buckets[0].Count)
	assert.Equal(t, 2, buckets[14].Count)
	assert.Equal(t, "Mid A", buckets[14].Events[0].Title)
	assert.Equal(t, "Mid B", buckets[14].Events[1].Title)

	total := 0
	for _, b := range buckets {
		total += b.Count
		assert.Len(t, b.Events, b.Count)
	}
	assert.Equal(t, 3, total, "out-of-month and dateless events contribute to no bucket")
}

func TestCalendarMonth_MonthLengths(t *testing.T) {
	assert.Len(t, CalendarMonth(nil, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)), 29)
	assert.Len(t, CalendarMonth(nil, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC)), 28)
	assert.Len(t, CalendarMonth(nil, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)), 31)
}

func TestFilterByDay(t *testing.T) {
	day := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	events := []models.EventRecord{
		{ID: 1, Date: datePtr(time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))},
		{ID: 2, Date: datePtr(time.Date(2024, 6, 16, 9, 0, 0, 0, time.UTC))},
		{ID: 3, Date: datePtr(time.Date(2024, 6, 15, 23, 30, 0, 0, time.UTC))},
		{ID: 4},
	}

	got := FilterByDay(events, day)

	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	// Filtering an already-filtered slice changes nothing.
	assert.Equal(t, got, FilterByDay(got, day))
}

func TestSearch(t *testing.T) {
	events := []models.EventRecord{
		{ID: 1, Title: "Jazz Night", Description: "Live music downtown"},
		{ID: 2, Title: "Marathon", Description: "Annual city run"},
		{ID: 3, Title: "Cooking Class"},
	}

	assert.Equal(t, events, Search(events, ""), "empty query returns everything")

	got := Search(events, "JAZZ")
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	got = Search(events, "city")
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	assert.Empty(t, Search(events, "opera"))
}

func TestRecommend_TopThreeByAttendanceRatio(t *testing.T) {
	events := []models.EventRecord{
		{ID: 1, MaxAttendees: intPtr(40), CurrentAttendees: intPtr(28)}, // 0.70
		{ID: 2, MaxAttendees: intPtr(80), CurrentAttendees: intPtr(30)}, // 0.375
		{ID: 3, MaxAttendees: intPtr(10), CurrentAttendees: intPtr(9)},  // 0.90
		{ID: 4, MaxAttendees: intPtr(20), CurrentAttendees: intPtr(1)},  // 0.05
		{ID: 5},                              // no capacity, ineligible
		{ID: 6, MaxAttendees: intPtr(0)},     // zero capacity, ineligible
		{ID: 7, CurrentAttendees: intPtr(5)}, // no capacity, ineligible
	}

	got := Recommend(events)

	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
	assert.Equal(t, int64(2), got[2].ID)
}

func TestRecommend_TiesKeepStoredOrder(t *testing.T) {
	events := []models.EventRecord{
		{ID: 10, MaxAttendees: intPtr(10), CurrentAttendees: intPtr(5)},
		{ID: 11, MaxAttendees: intPtr(20), CurrentAttendees: intPtr(10)},
		{ID: 12, MaxAttendees: intPtr(4), CurrentAttendees: intPtr(2)},
	}

	got := Recommend(events)

	require.Len(t, got, 3)
	assert.Equal(t, int64(10), got[0].ID)
	assert.Equal(t, int64(11), got[1].ID)
	assert.Equal(t, int64(12), got[2].ID)
}

func TestRecommend_FewerEligibleThanLimit(t *testing.T) {
	events := []models.EventRecord{
		{ID: 1, MaxAttendees: intPtr(10), CurrentAttendees: intPtr(3)},
		{ID: 2},
	}

	got := Recommend(events)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	assert.Empty(t, Recommend(nil))
}

func TestMonthICS(t *testing.T) {
	events := []models.EventRecord{
		{
			ID:       1,
			Title:    "Jazz Night",
			Price:    decimal.NewFromFloat(25.5),
			Date:     datePtr(time.Date(2024, 6, 15, 19, 0, 0, 0, time.UTC)),
			Time:     "19:00",
			Duration: 120,
			Location: "Blue Note",
		},
		{ID: 2, Title: "Next Month", Date: datePtr(time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC))},
	}

	out := MonthICS(events, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "SUMMARY:Jazz Night")
	assert.Contains(t, out, "LOCATION:Blue Note")
	assert.Contains(t, out, "X-TICKET-PRICE:25.5")
	assert.False(t, strings.Contains(out, "Next Month"), "events outside the month stay out of the feed")
}
