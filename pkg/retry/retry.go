// Package retry wraps transport and install calls with bounded exponential
// backoff. Nothing is retried indefinitely, and the error surfaced after
// the final attempt is the operation's own, not a retry wrapper.
package retry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Policy is the budget for one retried call.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy matches the transport defaults: three attempts, two second
// base delay, thirty second cap.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// Delay reports the sleep before the retry following failure number
// attempt (zero-based): min(BaseDelay * 2^attempt, MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt > 30 {
		return p.MaxDelay
	}
	d := p.BaseDelay << uint(attempt)
	if d <= 0 || d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs op until it succeeds or the attempt budget is spent. Sleeps
// between attempts abort early when ctx is cancelled; cancellation is
// reported as the context's error, never as the operation's.
func (p Policy) Do(ctx context.Context, log *logrus.Logger, name string, op func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt < attempts-1 {
			d := p.Delay(attempt)
			log.Warnf("%s: attempt %d/%d failed: %v (retrying in %s)", name, attempt+1, attempts, lastErr, d)
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	log.Errorf("%s: failed after %d attempts: %v", name, attempts, lastErr)
	return lastErr
}
