package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/contract-deployer/internal/common"
)

// Config holds configuration for history store retries. Pipeline stages
// (clone, setup, deploy, verify) are never retried; only bookkeeping I/O is.
type Config struct {
	MaxRetries      int           // Maximum number of retry attempts
	InitialDelay    time.Duration // Initial delay before first retry
	MaxDelay        time.Duration // Maximum delay between retries
	BackoffFactor   float64       // Multiplier for exponential backoff
	RetryableErrors []string      // Error substrings that trigger retries
}

// DefaultRetryConfig returns the configuration used by the history store
func DefaultRetryConfig() *Config {
	return &Config{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []string{
			"database is locked",
			"sqlite_busy",
			"connection refused",
			"connection reset",
			"broken pipe",
			"deadlock",
			"could not serialize access",
			"too many clients",
		},
	}
}

// IsRetryable reports whether err is transient according to the config.
func (rc *Config) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, retryableErr := range rc.RetryableErrors {
		if strings.Contains(errStr, retryableErr) {
			return true
		}
	}
	return false
}

// Delay returns the wait before the given retry attempt (0-based).
func (rc *Config) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return rc.InitialDelay
	}

	delay := time.Duration(float64(rc.InitialDelay) * math.Pow(rc.BackoffFactor, float64(attempt)))
	if delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}

// Do runs op until it succeeds, returns a non-retryable error, or the attempts
// are exhausted.
func Do(ctx context.Context, config *Config, name string, op func(ctx context.Context) error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	logger := common.GetLogger().WithComponent("store-retry")

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("store operation succeeded after retry", "operation", name, "attempt", attempt+1)
			}
			return nil
		}
		lastErr = err

		if attempt == config.MaxRetries {
			break
		}
		if !config.IsRetryable(err) {
			return err
		}

		delay := config.Delay(attempt)
		logger.Warn("store operation failed, retrying",
			"operation", name,
			"error", err,
			"attempt", attempt+1,
			"max_attempts", config.MaxRetries+1,
			"retry_delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled during retry: %w", name, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", name, config.MaxRetries+1, lastErr)
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, config *Config, name string, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, config, name, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
