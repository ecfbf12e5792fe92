// Package comms establishes the single physical connection to the comm
// service that bridges this process to the trusted execution
// environment. It provides the retrying connection broker, a
// length-prefixed stream transport, and SRV-based endpoint resolution.
package comms

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/trustyvm/keymint-hal/interfaces"
	"github.com/trustyvm/keymint-hal/metrics"
)

// Retry constants for the startup connection. Fixed, not configurable
// at runtime.
const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = time.Second
)

// Dialer establishes one connection to the comm service.
type Dialer interface {
	Dial() (interfaces.CommService, error)
}

// Broker acquires the comm service connection with bounded retry under
// a constant delay. Startup-only: a connection is never re-established
// once live.
type Broker struct {
	dialer      Dialer
	maxAttempts int
	delay       time.Duration
	log         *slog.Logger

	// Sleep is the inter-attempt wait. Nil means time.Sleep; tests
	// substitute a recording function.
	Sleep func(time.Duration)
}

// NewBroker creates a broker around the given dialer.
func NewBroker(dialer Dialer, maxAttempts int, delay time.Duration, log *slog.Logger) *Broker {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Broker{
		dialer:      dialer,
		maxAttempts: maxAttempts,
		delay:       delay,
		log:         log,
	}
}

// Connect attempts to dial the comm service up to maxAttempts times,
// sleeping for the fixed delay between failed attempts. It returns on
// the first success without waiting. If every attempt fails, the
// returned error wraps the final attempt's cause; earlier failures are
// only logged.
func (b *Broker) Connect() (interfaces.CommService, error) {
	sleep := b.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		conn, err := b.dialer.Dial()
		if err == nil {
			metrics.ConnectAttemptsTotal.WithLabelValues("ok").Inc()
			b.log.Info("connected to comm service", "attempt", attempt)
			return conn, nil
		}
		metrics.ConnectAttemptsTotal.WithLabelValues("error").Inc()
		lastErr = err

		if attempt < b.maxAttempts {
			b.log.Warn("comm service connect attempt failed, retrying",
				"attempt", attempt,
				"maxAttempts", b.maxAttempts,
				"retryDelay", b.delay,
				"err", err)
			sleep(b.delay)
		}
	}
	return nil, fmt.Errorf("%w: after %d attempts: %w",
		interfaces.ErrConnection, b.maxAttempts, lastErr)
}
