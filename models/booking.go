package models

import (
	"time"
)

// Booking form states. A session starts empty, turns dirty as soon as any
// attendee field holds a non-default value, and ends in success or failed
// after a submission attempt. A failed session stays re-submittable.
const (
	FormStateEmpty      = "empty"
	FormStateDirty      = "dirty"
	FormStateSubmitting = "submitting"
	FormStateSuccess    = "success"
	FormStateFailed     = "failed"
)

// AttendeeFields are the booking form fields that participate in the
// aggregate emptiness check driving the empty/dirty transition.
var AttendeeFields = []string{"name", "email", "national_id", "favorite_animal"}

// BookingForm carries the attendee input plus card details for one
// submission attempt. Card details are handed straight to the payment
// provider and never persisted.
type BookingForm struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	NationalID     string `json:"nationalId" validate:"required,national_id"`
	FavoriteAnimal string `json:"favoriteAnimal" validate:"required,allowed_animal"`

	CardNumber   string `json:"cardNumber" validate:"required"`
	CardExpMonth int    `json:"cardExpMonth" validate:"required,min=1,max=12"`
	CardExpYear  int    `json:"cardExpYear" validate:"required"`
	CardCVC      string `json:"cardCvc" validate:"required"`
}

// BookingSession tracks one attendee's journey through the booking form.
type BookingSession struct {
	ID        string            `json:"id"`
	EventID   int64             `json:"event_id"`
	State     string            `json:"state"`
	Fields    map[string]string `json:"fields,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Dirty reports whether any attendee field holds a non-default value.
func (s *BookingSession) Dirty() bool {
	for _, f := range AttendeeFields {
		if s.Fields[f] != "" {
			return true
		}
	}
	return false
}

// BookingRecord is the durable trace of a successful booking: the attendee,
// the event and the tokenized payment method. No raw card data.
type BookingRecord struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	EventID       int64     `json:"event_id"`
	AttendeeName  string    `json:"attendee_name"`
	AttendeeEmail string    `json:"attendee_email"`
	PaymentToken  string    `json:"payment_token"`
	CreatedAt     time.Time `json:"created_at"`
}
