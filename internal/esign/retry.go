package esign

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// UpstreamError is a failed provider call. Retryable only for rate limiting
// and server-side failures; 4xx means the request itself is wrong and must
// not be replayed.
type UpstreamError struct {
	StatusCode int
	Operation  string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("provider %s failed: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *UpstreamError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// RetryPolicy is the single retry configuration injected into every
// provider-calling operation. Delay doubles from BaseDelay per attempt.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond}
}

// Do runs fn, retrying on retryable upstream errors with exponential backoff.
// Non-retryable errors and context cancellation end the loop immediately.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := p.BaseDelay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		var upstream *UpstreamError
		if !errors.As(err, &upstream) || !upstream.Retryable() || attempt == attempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
