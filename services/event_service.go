package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"event-booker/models"
	"event-booker/monitoring"
	"event-booker/store"
)

// CreateEventInput is the admin form for a new event. Date is the selected
// calendar day; Time is the 24-hour time of day the event starts.
type CreateEventInput struct {
	Title        string          `json:"title" validate:"required"`
	Price        decimal.Decimal `json:"price"`
	Date         string          `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string          `json:"time" validate:"required,datetime=15:04"`
	Duration     int             `json:"duration" validate:"required,min=1"`
	MaxAttendees int             `json:"maxAttendees" validate:"required,min=1"`
	Description  string          `json:"description" validate:"required"`
	ImageURL     string          `json:"imageUrl" validate:"required,url"`
	Location     string          `json:"location"`
}

// EventService is the admin-side controller: it validates new-event input,
// combines the selected day with the time of day into one timestamp and
// appends the record through the store.
type EventService struct {
	store    store.EventStore
	validate *validator.Validate
	now      func() time.Time
}

func NewEventService(eventStore store.EventStore) *EventService {
	return &EventService{
		store:    eventStore,
		validate: newValidator(),
		now:      time.Now,
	}
}

// CreateEvent validates the form and persists the event. The stored date is
// the selected day at UTC midnight with hours and minutes taken from the
// time field.
func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (models.EventRecord, error) {
	fields := map[string]string{}
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.EventRecord{}, fmt.Errorf("event: create: %w", err)
		}
		fields = fieldMessages(verrs)
	}
	if in.Price.IsNegative() {
		fields["price"] = "must not be negative"
	}
	if len(fields) > 0 {
		return models.EventRecord{}, &ValidationError{Fields: fields}
	}

	start, err := models.CombineDateTime(in.Date, in.Time)
	if err != nil {
		// Unreachable after validation, but never trust two parsers to agree.
		return models.EventRecord{}, &ValidationError{Fields: map[string]string{"date": "has an invalid format"}}
	}

	rec, err := s.store.Append(ctx, models.EventInput{
		Title:        in.Title,
		Price:        in.Price,
		Date:         start.Format(time.RFC3339),
		Time:         in.Time,
		Duration:     in.Duration,
		MaxAttendees: in.MaxAttendees,
		Description:  in.Description,
		ImageURL:     in.ImageURL,
		Location:     in.Location,
	})
	if err != nil {
		return models.EventRecord{}, err
	}

	monitoring.RecordEventCreated()
	return rec, nil
}

// ClearEvents drops the whole collection.
func (s *EventService) ClearEvents(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	monitoring.RecordStoreClear()
	return nil
}

// Today returns the current UTC day, the default working date the admin
// form re-selects after a successful create.
func (s *EventService) Today() string {
	return s.now().UTC().Format("2006-01-02")
}
