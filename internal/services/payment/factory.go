package payment

import (
	"fmt"

	"event-booker/internal/services/payment/stripe"
)

// Factory creates provider instances based on provider name.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// CreateProvider creates a provider instance from its name and
// provider-specific configuration.
func (f *Factory) CreateProvider(name ProviderName, config interface{}) (Provider, error) {
	switch name {
	case ProviderStripe:
		stripeConfig, ok := config.(*stripe.Config)
		if !ok {
			return nil, fmt.Errorf("invalid stripe config type, expected *stripe.Config")
		}
		return NewStripeAdapter(stripeConfig), nil

	case ProviderSimulator:
		return NewSimulator(), nil

	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", name)
	}
}

// GetSupportedProviders returns the provider names this factory can build.
func (f *Factory) GetSupportedProviders() []ProviderName {
	return []ProviderName{
		ProviderStripe,
		ProviderSimulator,
	}
}
