package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"event-booker/internal/status"
)

// Simulator test card numbers and their outcomes.
const (
	SimCardSuccess  = "4242424242424242"
	SimCardDeclined = "4000000000000002"
	SimCardExpired  = "4000000000000069"
)

// Simulator is the development provider: deterministic outcomes keyed by
// well-known test card numbers, no network.
type Simulator struct{}

func NewSimulator() *Simulator {
	return &Simulator{}
}

func (s *Simulator) Name() ProviderName {
	return ProviderSimulator
}

func (s *Simulator) Tokenize(_ context.Context, card *CardDetails) (*PaymentMethod, error) {
	switch card.Number {
	case SimCardDeclined:
		return nil, fmt.Errorf("%w: Your card was declined.", status.ErrTokenizationFailed)
	case SimCardExpired:
		return nil, fmt.Errorf("%w: Your card has expired.", status.ErrTokenizationFailed)
	}
	return &PaymentMethod{
		ID:        "pm_sim_" + uuid.NewString(),
		Provider:  ProviderSimulator,
		Last4:     card.Last4(),
		CreatedAt: time.Now(),
	}, nil
}

func (s *Simulator) Close(_ context.Context) error {
	return nil
}
