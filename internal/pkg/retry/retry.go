// Package retry is the bounded retry policy for collaborator calls made
// outside a request: startup probes and maintenance jobs. Request handlers
// do not retry.
package retry

import (
	"context"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"filevault/internal/pkg/apperr"
)

// Policy retries Unavailable errors with capped exponential backoff. Any
// other error ends the loop at once.
type Policy struct {
	Attempts uint64
	Base     time.Duration
	Max      time.Duration
}

func Default() Policy {
	return Policy{Attempts: 5, Base: 200 * time.Millisecond, Max: 5 * time.Second}
}

func (p Policy) backoff() goretry.Backoff {
	base := p.Base
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	b := goretry.NewExponential(base)
	if p.Max > 0 {
		b = goretry.WithCappedDuration(p.Max, b)
	}
	attempts := p.Attempts
	if attempts == 0 {
		attempts = 1
	}
	return goretry.WithMaxRetries(attempts-1, b)
}

// Do calls fn until it succeeds, returns a permanent error, runs out of
// attempts or ctx ends. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	return goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && apperr.Is(err, apperr.KindUnavailable) {
			return goretry.RetryableError(err)
		}
		return err
	})
}

// Transient marks err as worth retrying when it is not already classified.
func Transient(service string, err error) error {
	return apperr.Unavailable(service, err)
}
