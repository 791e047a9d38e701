package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com"

type Config struct {
	// SecretKey authenticates against the Stripe API.
	SecretKey string `json:"secretKey" mapstructure:"secret_key"`

	// BaseURL overrides the API host, used by tests.
	BaseURL string `json:"baseUrl" mapstructure:"base_url"`
}

// Client is a minimal Stripe API client covering payment method creation.
type Client struct {
	// baseURL is the Stripe API host.
	baseURL string

	// secretKey is sent as a bearer token on every request.
	secretKey string

	// hc is the http client. The 10s timeout is the collaborator-side
	// policy; callers do not add their own.
	hc *http.Client
}

// APIError is the error shape Stripe returns; its message is intended to be
// user-visible.
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

type tokenizeResponse struct {
	ID    string    `json:"id"`
	Error *APIError `json:"error"`
	Card  struct {
		Last4 string `json:"last4"`
	} `json:"card"`
}

func NewClient(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		secretKey: cfg.SecretKey,

		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreatePaymentMethod calls POST /v1/payment_methods with form-encoded card
// details and returns the payment method id. Stripe-reported failures come
// back as *APIError.
func (c *Client) CreatePaymentMethod(ctx context.Context, number string, expMonth, expYear int, cvc string) (string, string, error) {
	form := url.Values{}
	form.Set("type", "card")
	form.Set("card[number]", number)
	form.Set("card[exp_month]", strconv.Itoa(expMonth))
	form.Set("card[exp_year]", strconv.Itoa(expYear))
	form.Set("card[cvc]", cvc)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_methods", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("stripe: request failed: %w", err)
	}
	defer resp.Body.Close()

	var body tokenizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("stripe: decode response: %w", err)
	}

	if body.Error != nil {
		return "", "", body.Error
	}
	if body.ID == "" {
		return "", "", fmt.Errorf("stripe: unexpected response status %d", resp.StatusCode)
	}
	return body.ID, body.Card.Last4, nil
}
