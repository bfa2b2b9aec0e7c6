package db

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// CallPolicy bounds every persistence call with a timeout and retries
// transient failures a fixed number of times. Constraint violations and
// other definitive errors are never retried.
type CallPolicy struct {
	Timeout time.Duration
	Retries int
	Delay   time.Duration
}

func DefaultCallPolicy() CallPolicy {
	return CallPolicy{Timeout: 5 * time.Second, Retries: 2, Delay: 300 * time.Millisecond}
}

// Run executes fn under the policy's timeout, retrying transient errors.
func (p CallPolicy) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= p.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, timeout)
		err := fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			return err
		}
	}

	return lastErr
}

// IsTransient reports whether err looks like a timeout or connectivity
// problem worth retrying. Unique violations and the like are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 covers connection exceptions; 57014 is query_canceled.
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return true
		}
		if pgErr.Code == "57014" {
			return true
		}
	}

	return pgconn.SafeToRetry(err)
}
