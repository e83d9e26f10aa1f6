package ragblade

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/flarexio/ragblade/provider"
)

type retrier struct {
	cfg RetryConfig
	log *zap.Logger
}

func (r retrier) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval.Duration()
	b.MaxInterval = r.cfg.MaxInterval.Duration()
	b.MaxElapsedTime = 0

	attempts := r.cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// retry runs op until it succeeds, fails permanently or the attempts run
// out. Each attempt gets its own timeout. Errors are classified as
// ErrUpstreamRejected when op failed with a non-transient error and
// ErrUpstreamUnavailable otherwise. Cancellation of ctx carries no kind.
func retry[T any](ctx context.Context, r retrier, component Component, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		result  T
		attempt int
	)

	operation := func() error {
		attempt++

		attemptCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		v, err := op(attemptCtx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}

			if !provider.IsTransient(err) {
				return backoff.Permanent(err)
			}

			return err
		}

		result = v
		return nil
	}

	notify := func(err error, next time.Duration) {
		r.log.Warn(err.Error(),
			zap.String("component", string(component)),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", next),
		)
	}

	err := backoff.RetryNotify(operation, r.backOff(ctx), notify)
	if err == nil {
		return result, nil
	}

	var zero T

	switch ctx.Err() {
	case context.Canceled:
		return zero, newError(component, nil, ctx.Err())
	case context.DeadlineExceeded:
		return zero, newError(component, ErrUpstreamUnavailable, ctx.Err())
	}

	if !provider.IsTransient(err) {
		return zero, newError(component, ErrUpstreamRejected, err)
	}

	return zero, newError(component, ErrUpstreamUnavailable, err)
}
