package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds how long a write waits out a locked database.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig returns the default busy-retry window.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     250 * time.Millisecond,
		MaxElapsedTime:  2 * time.Second,
	}
}

// isBusy reports whether err is SQLite lock contention.
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// withBusyRetry runs op, retrying only while the database reports it is locked.
// Any other error is returned immediately.
func withBusyRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		err := op()
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialInterval
	policy.MaxInterval = cfg.MaxInterval
	policy.MaxElapsedTime = cfg.MaxElapsedTime

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}
