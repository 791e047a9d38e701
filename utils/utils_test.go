package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Circuit Breaker Tests

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("test", Settings{})

	assert.Equal(t, "test", cb.name)
	assert.Equal(t, uint32(100), cb.maxRequests)
	assert.Equal(t, 60*time.Second, cb.interval)
	assert.Equal(t, 60*time.Second, cb.timeout)
	assert.Equal(t, 0.6, cb.failureRatio)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test", Settings{})
	ctx := context.Background()

	expectedResult := "success"
	result, err := cb.Execute(ctx, func() (any, error) {
		return expectedResult, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, expectedResult, result)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(1), cb.counts.TotalSuccesses)
	assert.Equal(t, uint32(0), cb.counts.TotalFailures)
}

func TestCircuitBreaker_ExecuteFailure(t *testing.T) {
	cb := NewCircuitBreaker("test", Settings{})
	ctx := context.Background()

	expectedError := errors.New("test error")
	result, err := cb.Execute(ctx, func() (any, error) {
		return nil, expectedError
	})

	assert.Error(t, err)
	assert.Equal(t, expectedError, err)
	assert.Nil(t, result)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(0), cb.counts.TotalSuccesses)
	assert.Equal(t, uint32(1), cb.counts.TotalFailures)
}

func TestCircuitBreaker_TripsAfterFailureRatio(t *testing.T) {
	cb := NewCircuitBreaker("test", Settings{MaxRequests: 4, FailureRatio: 0.5})
	ctx := context.Background()

	callErr := errors.New("collaborator down")
	for i := 0; i < 4; i++ {
		cb.Execute(ctx, func() (any, error) {
			return nil, callErr
		})
	}

	assert.Equal(t, StateOpen, cb.State())

	// While open, calls fail fast without invoking the function.
	invoked := false
	_, err := cb.Execute(ctx, func() (any, error) {
		invoked = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.False(t, invoked)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker("test", Settings{
		MaxRequests:  2,
		FailureRatio: 0.5,
		Timeout:      10 * time.Millisecond,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		cb.Execute(ctx, func() (any, error) {
			return nil, errors.New("boom")
		})
	}
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	result, err := cb.Execute(ctx, func() (any, error) {
		return "recovered", nil
	})
	assert.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, StateClosed, cb.State())
}
