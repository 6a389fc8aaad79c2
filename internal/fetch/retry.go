package fetch

import (
	"bookmeter-discounts/internal/components/telemetry"
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const report_retrying_fetch = "retrying.fetch"

const (
	DefaultMaxAttempts = 100
	DefaultRetryDelay  = time.Second
)

// Retrying retries transport failures of the wrapped fetcher with a fixed
// delay. Only the fetch itself is retried, a page that arrives but lacks
// what the caller was looking for is the caller's problem.
type Retrying struct {
	inner       PageFetcher
	maxAttempts uint64
	delay       time.Duration
	tel         telemetry.API
}

// NewRetrying wraps `inner`, maxAttempts counts the first try. Zero values
// fall back to DefaultMaxAttempts and DefaultRetryDelay.
func NewRetrying(inner PageFetcher, maxAttempts uint64, delay time.Duration, tel telemetry.API) Retrying {
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	return Retrying{
		inner:       inner,
		maxAttempts: maxAttempts,
		delay:       delay,
		tel:         telemetry.NewScopedAPI("fetch", tel),
	}
}

func (r Retrying) Fetch(ctx context.Context, target string) (string, error) {
	var body string
	attempts := 0

	operation := func() error {
		attempts++
		var err error
		body, err = r.inner.Fetch(ctx, target)
		if err != nil && IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.delay), r.maxAttempts-1),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		r.tel.ReportDebug(report_retrying_fetch, target, attempts, err, wait)
	}

	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return body, nil
	}
	if IsPermanent(err) || ctx.Err() != nil {
		return "", err
	}

	r.tel.ReportWarning(report_retrying_fetch, target, attempts, err)
	return "", fmt.Errorf("%w after %d attempts: %s: %w", ErrRetriesExhausted, attempts, target, err)
}
