package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// ResilientPublisher wraps a Publisher with resilience patterns from fortify.
// Broker hiccups are retried with backoff; a persistent outage trips the
// circuit so publishing fails fast instead of stalling request handling.
type ResilientPublisher struct {
	publisher      Publisher
	circuitBreaker circuitbreaker.CircuitBreaker[struct{}]
	retrier        retry.Retry[struct{}]
	logger         *slog.Logger
}

// ResilientConfig holds configuration for the resilient publisher wrapper.
type ResilientConfig struct {
	// MaxAttempts per publish (default: 3)
	MaxAttempts int

	// Logger for resilience events
	Logger *slog.Logger
}

// NewResilientPublisher wraps a publisher with retry and circuit breaking.
func NewResilientPublisher(publisher Publisher, cfg ResilientConfig) *ResilientPublisher {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	rp := &ResilientPublisher{
		publisher: publisher,
		logger:    cfg.Logger,
	}

	rp.circuitBreaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			if rp.logger != nil {
				rp.logger.Warn("event publisher circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			}
		},
	})

	rp.retrier = retry.New[struct{}](retry.Config{
		MaxAttempts:   maxAttempts,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
	})

	return rp
}

// Publish delivers the event through the circuit breaker with retries.
func (p *ResilientPublisher) Publish(ctx context.Context, evt Event) error {
	_, err := p.circuitBreaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return p.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.publisher.Publish(ctx, evt)
		})
	})
	return err
}

// Close releases the underlying publisher.
func (p *ResilientPublisher) Close() error {
	return p.publisher.Close()
}
