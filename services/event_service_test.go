package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-booker/models"
	"event-booker/store"
)

// recordingStore captures appended inputs for write-side tests.
type recordingStore struct {
	appended []models.EventInput
	cleared  int
}

func (r *recordingStore) List(ctx context.Context) ([]models.RawRecord, error) { return nil, nil }

func (r *recordingStore) Append(ctx context.Context, in models.EventInput) (models.EventRecord, error) {
	r.appended = append(r.appended, in)
	return models.EventRecord{ID: int64(len(r.appended)), Title: in.Title}, nil
}

func (r *recordingStore) Clear(ctx context.Context) error {
	r.cleared++
	return nil
}

func (r *recordingStore) Subscribe() (<-chan store.ChangeEvent, func()) {
	ch := make(chan store.ChangeEvent)
	return ch, func() { close(ch) }
}

func validCreateEventInput() CreateEventInput {
	return CreateEventInput{
		Title:        "Jazz Night",
		Price:        decimal.NewFromFloat(25.5),
		Date:         "2024-06-15",
		Time:         "19:30",
		Duration:     120,
		MaxAttendees: 40,
		Description:  "Live jazz downtown",
		ImageURL:     "https://example.com/jazz.jpg",
		Location:     "Blue Note",
	}
}

func setupTestEventService(t *testing.T) (*EventService, *recordingStore) {
	t.Helper()
	st := &recordingStore{}
	svc := NewEventService(st)
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc, st
}

func TestEventService_CreateEvent_CombinesDateAndTime(t *testing.T) {
	svc, st := setupTestEventService(t)

	rec, err := svc.CreateEvent(context.Background(), validCreateEventInput())
	require.NoError(t, err)
	assert.Equal(t, "Jazz Night", rec.Title)

	require.Len(t, st.appended, 1)
	in := st.appended[0]
	assert.Equal(t, "2024-06-15T19:30:00Z", in.Date)
	assert.Equal(t, "19:30", in.Time)
	assert.Equal(t, 120, in.Duration)
	assert.Equal(t, 40, in.MaxAttendees)
	assert.Equal(t, 0, in.CurrentAttendees, "new events start with zero attendees")
}

func TestEventService_CreateEvent_ValidationFailures(t *testing.T) {
	svc, st := setupTestEventService(t)

	tests := []struct {
		name    string
		mutate  func(*CreateEventInput)
		field   string
		message string
	}{
		{
			name:    "missing title",
			mutate:  func(in *CreateEventInput) { in.Title = "" },
			field:   "title",
			message: "is required",
		},
		{
			name:    "malformed date",
			mutate:  func(in *CreateEventInput) { in.Date = "15/06/2024" },
			field:   "date",
			message: "has an invalid format",
		},
		{
			name:    "impossible time",
			mutate:  func(in *CreateEventInput) { in.Time = "25:99" },
			field:   "time",
			message: "has an invalid format",
		},
		{
			name:    "zero duration",
			mutate:  func(in *CreateEventInput) { in.Duration = 0 },
			field:   "duration",
			message: "is required",
		},
		{
			name:    "negative price",
			mutate:  func(in *CreateEventInput) { in.Price = decimal.NewFromInt(-5) },
			field:   "price",
			message: "must not be negative",
		},
		{
			name:    "bad image url",
			mutate:  func(in *CreateEventInput) { in.ImageURL = "not a url" },
			field:   "imageUrl",
			message: "must be a valid URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validCreateEventInput()
			tt.mutate(&in)

			_, err := svc.CreateEvent(context.Background(), in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.message, verr.Fields[tt.field])
		})
	}

	assert.Empty(t, st.appended, "rejected input is never persisted")
}

func TestEventService_ClearEvents(t *testing.T) {
	svc, st := setupTestEventService(t)

	require.NoError(t, svc.ClearEvents(context.Background()))
	assert.Equal(t, 1, st.cleared)
}

func TestEventService_Today(t *testing.T) {
	svc, _ := setupTestEventService(t)
	assert.Equal(t, "2024-06-01", svc.Today())
}
