package status

import "errors"

var (
	ErrTokenizationFailed  = errors.New("payment: tokenization failed")
	ErrProviderUnavailable = errors.New("payment: provider unavailable")
	ErrSessionNotFound     = errors.New("booking: session not found")
	ErrSessionClosed       = errors.New("booking: session already completed")
	ErrEventNotFound       = errors.New("catalog: event not found")
)
