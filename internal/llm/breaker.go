package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = gobreaker.ErrOpenState

// BreakerConfig tunes the circuit breaker placed in front of a backend.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the
	// circuit. Zero disables the breaker.
	MaxFailures int
	// OpenTimeout is how long the circuit stays open before a probe request
	// is let through.
	OpenTimeout time.Duration
}

type breakerOracle struct {
	next Oracle
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker wraps next in a circuit breaker. Cancelled requests do not
// count as failures. next is returned unchanged when cfg.MaxFailures is zero.
func WithBreaker(next Oracle, cfg BreakerConfig, log *slog.Logger) Oracle {
	if cfg.MaxFailures <= 0 {
		return next
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	log = log.With("component", "llm_breaker")

	maxFailures := uint32(cfg.MaxFailures)
	settings := gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	return &breakerOracle{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerOracle) Complete(ctx context.Context, req Request) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Complete(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}
