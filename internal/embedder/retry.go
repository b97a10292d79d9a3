package embedder

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/dshills/localsearch-mcp/pkg/types"
)

// RetryConfig controls exponential backoff for provider API calls
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig returns the backoff schedule used by the HTTP
// providers: 3 attempts starting at 100ms, doubling, capped at 5s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: MaxRetries,
		BaseDelay:  time.Duration(InitialBackoffMs) * time.Millisecond,
		MaxDelay:   time.Duration(MaxBackoffMs) * time.Millisecond,
		Multiplier: BackoffMultiplier,
	}
}

// isPermanent reports whether an error can never heal on retry, so
// backing off would only delay the caller.
func isPermanent(err error) bool {
	return errors.Is(err, types.ErrModelNotAvailable) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrBatchTooLarge)
}

// retryWithBackoff runs fn until it succeeds, returns a permanent
// error, exhausts config.MaxRetries, or the context is canceled. Each
// delay carries up to 25% random jitter so concurrent indexing workers
// hitting the same backend do not retry in lockstep.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := config.BaseDelay

	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if isPermanent(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err

		if attempt == config.MaxRetries {
			break
		}

		jittered := delay + time.Duration(rand.Int63n(int64(delay)/4+1))
		slog.Debug("embedding call failed, retrying",
			"attempt", attempt, "delay", jittered, "error", err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(jittered):
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	return zero, lastErr
}
