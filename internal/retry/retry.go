// Package retry holds the backoff schedule shared by the HTTP clients.
package retry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	baseDelay = 200 * time.Millisecond
	maxDelay  = 5 * time.Second
)

// NewBackOff returns the shared schedule: 200ms doubling up to 5s, without
// jitter, never giving up on its own. Callers bound the attempt count.
func NewBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Delay returns the backoff for the given zero-based attempt, capped at 5s.
func Delay(attempt int) time.Duration {
	b := NewBackOff()
	d := b.NextBackOff()
	for i := 0; i < min(attempt, 16); i++ {
		d = b.NextBackOff()
	}
	return d
}

// After honours a Retry-After header in seconds, falling back to Delay.
func After(resp *http.Response, attempt int) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return Delay(attempt)
}

// Retryable reports whether a status code is worth another attempt.
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
