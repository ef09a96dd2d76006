package provider

import (
	"context"
	"time"

	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/resilience"
)

// GuardConfig is the resilience section of a backend's config.
type GuardConfig struct {
	Retry   resilience.RetryConfig   `mapstructure:"retry"`
	Breaker resilience.BreakerConfig `mapstructure:"breaker"`
}

// Guard runs backend calls through a circuit breaker and a retry loop. The
// breaker sits inside the retry so an open breaker ends the loop at once
// (its error is not retryable from the caller's point of view).
type Guard struct {
	name    string
	retry   resilience.RetryConfig
	breaker *resilience.Breaker
	log     *logger.Logger
}

// NewGuard builds a Guard for the named backend.
func NewGuard(name string, cfg GuardConfig) *Guard {
	cfg.Retry.ApplyDefaults()
	cfg.Breaker.Name = name
	g := &Guard{
		name:  name,
		retry: cfg.Retry,
		log:   logger.Get("provider").WithFields(logger.Fields(logger.FieldProvider, name)),
	}
	cfg.Breaker.OnStateChange = func(name string, from, to resilience.State) {
		g.log.Warn("breaker state changed", logger.Fields("from", from.String(), "to", to.String()))
	}
	g.breaker = resilience.NewBreaker(cfg.Breaker)
	g.retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		g.log.Warn("backend call failed, retrying", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"backoff_ms", backoff.Milliseconds(),
		))
	}
	return g
}

// Breaker exposes the breaker for health reporting.
func (g *Guard) Breaker() *resilience.Breaker { return g.breaker }

// Call runs fn under g. A nil Guard runs fn once.
func Call[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	retry := g.retry
	inner := retry.RetryIf
	retry.RetryIf = func(err error) bool {
		if g.breaker.State() == resilience.StateOpen {
			return false
		}
		return inner(err)
	}
	return resilience.Retry(ctx, retry, func(ctx context.Context) (T, error) {
		var out T
		err := g.breaker.Execute(func() error {
			var err error
			out, err = fn(ctx)
			return err
		})
		return out, err
	})
}
