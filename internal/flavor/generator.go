package flavor

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// RetryConfig configures exponential backoff between generator attempts.
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxRetries      uint64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		MaxRetries:      2,
	}
}

// Options configures a Generator.
type Options struct {
	Timeout time.Duration // Per attempt; zero means no limit
	Retry   RetryConfig
	// Breaker trips after this many consecutive failures. Zero uses 3.
	TripAfter uint32
	// OpenFor is how long the breaker stays open. Zero uses 1 minute.
	OpenFor time.Duration
}

// Generator produces flavor lines from a Source. It never fails: when the
// source errors, times out or the breaker is open the caller's fallback is
// returned instead.
type Generator struct {
	source  Source
	breaker *gobreaker.CircuitBreaker
	opts    Options
	logger  *zap.Logger
}

// New creates a Generator. A nil source makes every call return the
// fallback.
func New(source Source, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("flavor")

	trip := opts.TripAfter
	if trip == 0 {
		trip = 3
	}
	openFor := opts.OpenFor
	if openFor == 0 {
		openFor = time.Minute
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "flavor",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// Shutdown is not the generator's fault.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Generator{source: source, breaker: cb, opts: opts, logger: logger}
}

// Line asks the source for a line, falling back when it cannot deliver.
func (g *Generator) Line(ctx context.Context, prompt, fallback string) string {
	if g == nil || g.source == nil {
		return fallback
	}
	line, err := g.generate(ctx, prompt)
	if err != nil {
		g.logger.Debug("using fallback line", zap.Error(err))
		return fallback
	}
	return line
}

// State reports the breaker state, for status display.
func (g *Generator) State() gobreaker.State {
	return g.breaker.State()
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	var line string

	operation := func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}

		result, err := g.breaker.Execute(func() (interface{}, error) {
			attemptCtx := ctx
			if g.opts.Timeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
				defer cancel()
			}
			return g.source.Line(attemptCtx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}

		line = result.(string)
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.opts.Retry.InitialInterval
	policy.MaxInterval = g.opts.Retry.MaxInterval
	policy.Multiplier = g.opts.Retry.Multiplier
	policy.MaxElapsedTime = 0

	var b backoff.BackOff = backoff.WithMaxRetries(policy, g.opts.Retry.MaxRetries)
	b = backoff.WithContext(b, ctx)

	err := backoff.Retry(operation, b)
	return line, err
}
