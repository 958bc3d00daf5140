package client

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/json-aggregator/pkg/logging"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the sleep after the first failed attempt.
	InitialBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    500 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

// Backoff returns the sleep between attempt n and n+1 (n starting at 1):
// InitialBackoff * BackoffMultiplier^(n-1). No jitter is applied.
func (rc RetryConfig) Backoff(attempt int) time.Duration {
	d := float64(rc.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= rc.BackoffMultiplier
	}
	return time.Duration(d)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryWithBackoff runs fn until it succeeds or MaxAttempts is reached.
// Cancellation errors returned by fn end the loop immediately.
func (c *Client) retryWithBackoff(ctx context.Context, endpoint string, fn func(attempt int) error) error {
	rc := c.retry

	var lastErr error
	for attempt := 1; attempt <= rc.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}

		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				c.logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}
		if errors.Is(err, ErrCancelled) {
			return err
		}

		lastErr = err

		if attempt >= rc.MaxAttempts {
			break
		}

		errClass := classOf(err)
		backoff := rc.Backoff(attempt)
		fetchRetriesTotal.WithLabelValues(string(errClass)).Inc()
		fetchRetryBackoffSeconds.WithLabelValues(string(errClass)).Observe(backoff.Seconds())

		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("error_class", string(errClass)).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("Retrying request after backoff")

		if err := c.sleep(ctx, backoff); err != nil {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return cancelled(err)
		}
	}

	fetchRetryExhaustedTotal.WithLabelValues(endpoint).Inc()
	logging.Critical(c.logger).
		Err(lastErr).
		Str("endpoint", endpoint).
		Str("error_class", string(classOf(lastErr))).
		Int("max_attempts", rc.MaxAttempts).
		Msg("Retry attempts exhausted")

	return &ExhaustedError{
		Endpoint: endpoint,
		Attempts: rc.MaxAttempts,
		Last:     lastErr,
	}
}
