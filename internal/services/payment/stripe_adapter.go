package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-booker/internal/services/payment/stripe"
	"event-booker/internal/status"
)

// StripeAdapter adapts the Stripe client to the Provider interface.
type StripeAdapter struct {
	client *stripe.Client
}

func NewStripeAdapter(cfg *stripe.Config) *StripeAdapter {
	return &StripeAdapter{client: stripe.NewClient(cfg)}
}

func (a *StripeAdapter) Name() ProviderName {
	return ProviderStripe
}

func (a *StripeAdapter) Tokenize(ctx context.Context, card *CardDetails) (*PaymentMethod, error) {
	id, last4, err := a.client.CreatePaymentMethod(ctx, card.Number, card.ExpMonth, card.ExpYear, card.CVC)
	if err != nil {
		var apiErr *stripe.APIError
		if errors.As(err, &apiErr) {
			// Collaborator-reported failure: the message is user-visible.
			return nil, fmt.Errorf("%w: %s", status.ErrTokenizationFailed, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: %v", status.ErrProviderUnavailable, err)
	}
	if last4 == "" {
		last4 = card.Last4()
	}
	return &PaymentMethod{
		ID:        id,
		Provider:  ProviderStripe,
		Last4:     last4,
		CreatedAt: time.Now(),
	}, nil
}

func (a *StripeAdapter) Close(_ context.Context) error {
	return nil
}
