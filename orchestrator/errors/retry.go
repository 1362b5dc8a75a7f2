package errors

import (
	"context"
	"time"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	RetryableErrors []ErrorCode
}

// DefaultRetryConfig returns the RPC transport policy: one attempt plus two
// retries on a fixed 200ms backoff.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     200 * time.Millisecond,
		Multiplier:   1.0,
		RetryableErrors: []ErrorCode{
			ErrCodeNetwork,
			ErrCodeTimeout,
		},
	}
}

// RetryFunc is a function that can be retried
type RetryFunc func() error

// RetryWithConfig retries a function with custom configuration. The last
// error is returned as-is once attempts are exhausted.
func RetryWithConfig(ctx context.Context, fn RetryFunc, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	var lastErr error
	delay := config.InitialDelay

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err, config.RetryableErrors) {
			return err
		}
		if attempt == config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * config.Multiplier)
		if config.MaxDelay > 0 && delay > config.MaxDelay {
			delay = config.MaxDelay
		}
	}

	var chainErr *ChainError
	if As(lastErr, &chainErr) {
		chainErr.WithContext("attempts", config.MaxAttempts)
	}
	return lastErr
}

func isRetryableError(err error, retryableCodes []ErrorCode) bool {
	var chainErr *ChainError
	if As(err, &chainErr) {
		for _, code := range retryableCodes {
			if chainErr.Code == code {
				return true
			}
		}
		return chainErr.IsRetryable()
	}
	return IsRetryable(err)
}
