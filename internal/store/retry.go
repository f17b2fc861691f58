package store

import (
	"context"
	"strings"
	"time"
)

// isBusyErr reports whether err looks like sqlite lock contention.
func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "sqlite_busy")
}

// retryBusyDelay is the single backoff applied before the one automatic
// retry spec §7 allows for Busy errors.
const retryBusyDelay = 25 * time.Millisecond

// WithBusyRetry runs fn once, and if it fails with sqlite lock contention,
// waits retryBusyDelay and runs it exactly one more time. This is the
// store's half of the "Busy: one automatic retry with backoff, then
// surfaced" policy from spec §7; callers still see the final error (wrapped
// as coreerr.KindBusy by the caller) if the retry also fails.
func WithBusyRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !isBusyErr(err) {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryBusyDelay):
	}
	return fn()
}
