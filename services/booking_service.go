package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"event-booker/config"
	"event-booker/internal/services/payment"
	"event-booker/internal/status"
	"event-booker/models"
	"event-booker/monitoring"
	"event-booker/notify"
	"event-booker/utils"
)

const sessionKeyPrefix = "booking:session:"

// disallowedAnimal is the one rejected value for the favorite-animal field,
// compared case-insensitively.
const disallowedAnimal = "zebra"

var nationalIDPattern = regexp.MustCompile(`^[0-9]{12}$`)

// BookingService drives the booking form state machine: sessions move from
// empty to dirty as fields fill in, and through submitting to success or
// failed on submission. Sessions live in Redis hashes with a TTL.
type BookingService struct {
	Redis *redis.Client

	provider  payment.Provider
	publisher notify.Publisher
	breaker   *utils.CircuitBreaker
	validate  *validator.Validate

	sessionTTL time.Duration
	newID      func() string
	now        func() time.Time
}

func NewBookingService(redisClient *redis.Client, provider payment.Provider, publisher notify.Publisher, cfg *config.Config) *BookingService {
	return &BookingService{
		Redis:     redisClient,
		provider:  provider,
		publisher: publisher,
		breaker: utils.NewCircuitBreaker("payment-tokenize", utils.Settings{
			MaxRequests:  cfg.BreakerMaxRequests,
			FailureRatio: cfg.BreakerFailureRatio,
			Timeout:      cfg.BreakerTimeout,
		}),
		validate:   newFormValidator(),
		sessionTTL: cfg.BookingSessionTTL,
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

func newFormValidator() *validator.Validate {
	v := newValidator()
	v.RegisterValidation("national_id", func(fl validator.FieldLevel) bool {
		return nationalIDPattern.MatchString(fl.Field().String())
	})
	v.RegisterValidation("allowed_animal", func(fl validator.FieldLevel) bool {
		return !strings.EqualFold(strings.TrimSpace(fl.Field().String()), disallowedAnimal)
	})
	return v
}

// StartSession opens a fresh, empty booking session for an event.
func (s *BookingService) StartSession(ctx context.Context, eventID int64) (*models.BookingSession, error) {
	session := &models.BookingSession{
		ID:        s.newID(),
		EventID:   eventID,
		State:     models.FormStateEmpty,
		Fields:    map[string]string{},
		CreatedAt: s.now(),
	}

	key := sessionKeyPrefix + session.ID
	err := s.Redis.HSet(ctx, key,
		"event_id", session.EventID,
		"state", session.State,
		"created_at", session.CreatedAt.UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return nil, fmt.Errorf("booking: start session: %w", err)
	}
	s.Redis.Expire(ctx, key, s.sessionTTL)

	return session, nil
}

// GetSession loads a session by ID.
func (s *BookingService) GetSession(ctx context.Context, sessionID string) (*models.BookingSession, error) {
	key := sessionKeyPrefix + sessionID
	data, err := s.Redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("booking: get session: %w", err)
	}
	if len(data) == 0 {
		return nil, status.ErrSessionNotFound
	}
	return sessionFromHash(sessionID, data), nil
}

// SetField updates one attendee field and tracks the aggregate emptiness of
// the field set. The form-changed notification fires only when emptiness
// flips (empty <-> dirty), not on every update.
func (s *BookingService) SetField(ctx context.Context, sessionID, field, value string) (bool, error) {
	if !isAttendeeField(field) {
		return false, fmt.Errorf("booking: unknown field %q", field)
	}

	key := sessionKeyPrefix + sessionID
	state, err := s.Redis.HGet(ctx, key, "state").Result()
	if err == redis.Nil {
		return false, status.ErrSessionNotFound
	} else if err != nil {
		return false, fmt.Errorf("booking: set field: %w", err)
	}

	switch state {
	case models.FormStateEmpty, models.FormStateDirty, models.FormStateFailed:
	default:
		return false, status.ErrSessionClosed
	}

	values, err := s.Redis.HMGet(ctx, key, models.AttendeeFields...).Result()
	if err != nil {
		return false, fmt.Errorf("booking: set field: %w", err)
	}

	wasDirty := false
	isDirty := false
	for i, name := range models.AttendeeFields {
		current, _ := values[i].(string)
		if current != "" {
			wasDirty = true
		}
		if name == field {
			current = value
		}
		if current != "" {
			isDirty = true
		}
	}

	if err := s.Redis.HSet(ctx, key, field, value).Err(); err != nil {
		return false, fmt.Errorf("booking: set field: %w", err)
	}

	// A failed session becomes editable again the moment it changes.
	if wasDirty == isDirty && state == models.FormStateFailed {
		s.Redis.HSet(ctx, key, "state", models.FormStateDirty)
	}

	if wasDirty != isDirty {
		newState := models.FormStateEmpty
		if isDirty {
			newState = models.FormStateDirty
		}
		if err := s.Redis.HSet(ctx, key, "state", newState).Err(); err != nil {
			return false, fmt.Errorf("booking: set field: %w", err)
		}
		monitoring.RecordFormTransition(newState)
		s.publisher.FormStateChanged(ctx, sessionID, isDirty)
	}

	return isDirty, nil
}

// Submit validates the form and, only if every rule passes, asks the payment
// provider to tokenize the card. A validation failure leaves the session
// dirty and never touches the provider. A provider failure leaves the
// session failed but re-submittable; there is no automatic retry.
func (s *BookingService) Submit(ctx context.Context, sessionID string, form models.BookingForm) (*models.BookingSession, error) {
	key := sessionKeyPrefix + sessionID
	fields, err := s.Redis.HMGet(ctx, key, "state", "event_id").Result()
	if err != nil {
		return nil, fmt.Errorf("booking: submit: %w", err)
	}
	state, _ := fields[0].(string)
	if state == "" {
		return nil, status.ErrSessionNotFound
	}
	if state == models.FormStateSuccess {
		return nil, status.ErrSessionClosed
	}
	eventID := parseEventID(fields[1])

	if err := s.validate.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("booking: submit: %w", err)
		}
		if err := s.Redis.HSet(ctx, key, "state", models.FormStateDirty).Err(); err != nil {
			return nil, fmt.Errorf("booking: submit: %w", err)
		}
		monitoring.RecordBookingSubmission("rejected")
		session := &models.BookingSession{ID: sessionID, EventID: eventID, State: models.FormStateDirty}
		return session, &ValidationError{Fields: fieldMessages(verrs)}
	}

	if err := s.Redis.HSet(ctx, key, "state", models.FormStateSubmitting).Err(); err != nil {
		return nil, fmt.Errorf("booking: submit: %w", err)
	}

	started := s.now()
	result, tokErr := s.breaker.Execute(ctx, func() (interface{}, error) {
		return s.provider.Tokenize(ctx, &payment.CardDetails{
			Number:   form.CardNumber,
			ExpMonth: form.CardExpMonth,
			ExpYear:  form.CardExpYear,
			CVC:      form.CardCVC,
		})
	})
	monitoring.ObserveTokenizeDuration(s.now().Sub(started))

	if tokErr != nil {
		message := userMessage(tokErr)
		if err := s.Redis.HSet(ctx, key, "state", models.FormStateFailed, "error", message).Err(); err != nil {
			return nil, fmt.Errorf("booking: submit: %w", err)
		}
		monitoring.RecordBookingSubmission("failed")
		s.publisher.BookingFailed(ctx, sessionID, message)
		return &models.BookingSession{
			ID:      sessionID,
			EventID: eventID,
			State:   models.FormStateFailed,
			Error:   message,
		}, nil
	}

	pm := result.(*payment.PaymentMethod)

	// Success: reset the form to defaults and close the session out.
	if err := s.Redis.HSet(ctx, key, "state", models.FormStateSuccess, "error", "").Err(); err != nil {
		return nil, fmt.Errorf("booking: submit: %w", err)
	}
	s.Redis.HDel(ctx, key, models.AttendeeFields...)

	record := models.BookingRecord{
		ID:            s.newID(),
		SessionID:     sessionID,
		EventID:       eventID,
		AttendeeName:  form.Name,
		AttendeeEmail: form.Email,
		PaymentToken:  pm.ID,
		CreatedAt:     s.now(),
	}
	if data, err := json.Marshal(record); err == nil {
		if err := s.Redis.LPush(ctx, bookingHistoryKey(eventID), data).Err(); err != nil {
			log.Printf("booking: record history for event %d: %v", eventID, err)
		}
	}

	monitoring.RecordBookingSubmission("success")
	s.publisher.BookingSucceeded(ctx, sessionID, pm.ID)

	return &models.BookingSession{
		ID:      sessionID,
		EventID: eventID,
		State:   models.FormStateSuccess,
		Fields:  map[string]string{},
	}, nil
}

// History lists the successful bookings recorded for an event, newest first.
func (s *BookingService) History(ctx context.Context, eventID int64) ([]models.BookingRecord, error) {
	entries, err := s.Redis.LRange(ctx, bookingHistoryKey(eventID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("booking: history: %w", err)
	}

	records := make([]models.BookingRecord, 0, len(entries))
	for _, entry := range entries {
		var rec models.BookingRecord
		if err := json.Unmarshal([]byte(entry), &rec); err != nil {
			log.Printf("booking: skipping malformed history entry: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func bookingHistoryKey(eventID int64) string {
	return fmt.Sprintf("booking:history:%d", eventID)
}

func isAttendeeField(field string) bool {
	for _, f := range models.AttendeeFields {
		if f == field {
			return true
		}
	}
	return false
}

func sessionFromHash(id string, data map[string]string) *models.BookingSession {
	session := &models.BookingSession{
		ID:     id,
		State:  data["state"],
		Error:  data["error"],
		Fields: map[string]string{},
	}
	if raw, ok := data["event_id"]; ok {
		session.EventID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw, ok := data["created_at"]; ok {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			session.CreatedAt = t
		}
	}
	for _, f := range models.AttendeeFields {
		if v, ok := data[f]; ok && v != "" {
			session.Fields[f] = v
		}
	}
	return session
}

func parseEventID(v interface{}) int64 {
	s, _ := v.(string)
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

// userMessage strips the internal error chain down to what the attendee
// should see.
func userMessage(err error) string {
	switch {
	case errors.Is(err, utils.ErrBreakerOpen):
		return "Payment is temporarily unavailable. Please try again later."
	case errors.Is(err, status.ErrTokenizationFailed):
		return strings.TrimPrefix(err.Error(), status.ErrTokenizationFailed.Error()+": ")
	case errors.Is(err, status.ErrProviderUnavailable):
		return "Payment could not be processed. Please try again."
	default:
		return "Payment could not be processed. Please try again."
	}
}
