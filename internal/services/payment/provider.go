package payment

import (
	"context"
	"time"
)

// ProviderName identifies a payment provider implementation.
type ProviderName string

const (
	ProviderStripe    ProviderName = "stripe"
	ProviderSimulator ProviderName = "simulator"
)

// CardDetails is the raw card input collected by the booking form. It is
// handed to the provider for tokenization and never stored anywhere.
type CardDetails struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
}

// Last4 returns the trailing digits safe to log or persist.
func (c *CardDetails) Last4() string {
	if len(c.Number) < 4 {
		return c.Number
	}
	return c.Number[len(c.Number)-4:]
}

// PaymentMethod is the provider-issued token standing in for the card.
type PaymentMethod struct {
	ID        string       `json:"id"`
	Provider  ProviderName `json:"provider"`
	Last4     string       `json:"last4"`
	CreatedAt time.Time    `json:"created_at"`
}

// Provider is the common interface for hosted payment collaborators. A
// tokenization failure is user-visible and recoverable; callers never retry
// automatically and never enforce their own timeout on top of the
// provider's.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// Tokenize exchanges raw card details for a reusable payment method
	// token.
	Tokenize(ctx context.Context, card *CardDetails) (*PaymentMethod, error)

	// Close gracefully closes any connections.
	Close(ctx context.Context) error
}
