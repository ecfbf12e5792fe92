// Package channel wraps the single comm service connection behind a
// mutual-exclusion discipline. Every HAL front routes through one
// SharedChannel instance; exchanges from different callers are never
// interleaved on the underlying transport.
package channel

import (
	"fmt"
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"github.com/trustyvm/keymint-hal/interfaces"
	"github.com/trustyvm/keymint-hal/metrics"
)

// SharedChannel serializes request/response exchanges over the comm
// service connection it owns. At most one exchange is in flight at any
// instant.
//
// A panic out of the transport mid-exchange leaves the channel in an
// unknown state; the channel is then marked poisoned and every later
// Execute fails with interfaces.ErrChannelPoisoned. The caller decides
// what that means: during bring-up it is fatal, during steady-state
// serving it fails that one call.
type SharedChannel struct {
	mu       sync.Mutex
	conn     interfaces.CommService
	poisoned atomic.Bool
	log      *slog.Logger
}

// New creates a SharedChannel owning the given connection.
func New(conn interfaces.CommService, log *slog.Logger) *SharedChannel {
	return &SharedChannel{
		conn: conn,
		log:  log,
	}
}

// Execute sends one request frame and blocks until the response frame
// arrives, holding the channel lock for the full round trip. Requests
// larger than interfaces.MaxFrameSize are rejected before anything is
// sent.
func (c *SharedChannel) Execute(request []byte) (response []byte, err error) {
	if len(request) > interfaces.MaxFrameSize {
		metrics.ExchangesTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: %d bytes, limit is %d",
			interfaces.ErrFrameTooLarge, len(request), interfaces.MaxFrameSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-checked under the lock: a caller we waited behind may have
	// poisoned the channel.
	if c.poisoned.Load() {
		metrics.ExchangesTotal.WithLabelValues("poisoned").Inc()
		return nil, interfaces.ErrChannelPoisoned
	}

	defer func() {
		if r := recover(); r != nil {
			c.poisoned.Store(true)
			metrics.ChannelPoisonedTotal.Inc()
			c.log.Error("exchange panicked, channel is now poisoned", "panic", r)
			response = nil
			err = fmt.Errorf("%w: exchange panicked: %v", interfaces.ErrChannelPoisoned, r)
		}
	}()

	response, execErr := c.conn.Execute(request)
	if execErr != nil {
		metrics.ExchangesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", interfaces.ErrChannel, execErr)
	}

	metrics.ExchangesTotal.WithLabelValues("ok").Inc()
	return response, nil
}

// Poisoned reports whether a prior exchange corrupted the channel.
func (c *SharedChannel) Poisoned() bool {
	return c.poisoned.Load()
}

// Close releases the underlying connection.
func (c *SharedChannel) Close() error {
	return c.conn.Close()
}
