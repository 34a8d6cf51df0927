package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"almeone-contact-api/pkg/logger"
	"almeone-contact-api/pkg/metrics"

	"github.com/sony/gobreaker"
)

type BreakerConfig struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         2,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerProvider stops calling a provider that keeps failing, so requests
// fail fast instead of waiting out the send timeout.
type BreakerProvider struct {
	next Provider
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerProvider(next Provider, cfg BreakerConfig, log *slog.Logger) *BreakerProvider {
	if log == nil {
		log = logger.Nop()
	}
	name := "email-" + next.Name()

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		// Invalid messages say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidMessage)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("email circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}

	cb := gobreaker.NewCircuitBreaker(settings)
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(cb.State()))

	return &BreakerProvider{next: next, cb: cb}
}

func (b *BreakerProvider) Name() string { return b.next.Name() }

func (b *BreakerProvider) State() gobreaker.State { return b.cb.State() }

func (b *BreakerProvider) Send(ctx context.Context, msg Message) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s provider circuit open: %v", ErrSendFailed, b.next.Name(), err)
	}
	return err
}

// Unwrap exposes the decorated provider.
func (b *BreakerProvider) Unwrap() Provider { return b.next }
