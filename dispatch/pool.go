// Package dispatch runs the fixed-size worker pool that carries inbound
// HAL requests to their fronts. Workers block for the full round trip of
// one exchange; the pool returning control is treated as fatal by the
// caller unless it asked for shutdown.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/trustyvm/keymint-hal/interfaces"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

type job struct {
	handler interfaces.ServiceHandler
	request []byte
	reply   chan result
}

type result struct {
	response []byte
	err      error
}

// Pool dispatches requests to HAL fronts on a fixed set of workers.
type Pool struct {
	workers int
	jobs    chan job
	log     *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a pool with the given number of workers.
func NewPool(workers int, log *slog.Logger) *Pool {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Pool{
		workers: workers,
		jobs:    make(chan job),
		log:     log,
	}
}

// Submit hands a request to a worker and blocks until the response is
// ready. The context covers waiting for a worker and waiting for the
// reply; it does not cancel an exchange already in flight. There is no
// timeout layer on the channel itself.
func (p *Pool) Submit(ctx context.Context, handler interfaces.ServiceHandler, request []byte) ([]byte, error) {
	reply := make(chan result, 1)
	select {
	case p.jobs <- job{handler: handler, request: request, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.response, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run starts the workers and blocks until Close is called and all
// workers have drained. Callers treat an unexpected return as fatal.
func (p *Pool) Run() {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(id)
		}(i)
	}
	wg.Wait()
	p.log.Info("dispatch pool drained", "workers", p.workers)
}

// Close stops the workers once in-flight jobs complete.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
}

func (p *Pool) worker(id int) {
	for j := range p.jobs {
		response, err := p.handle(j)
		j.reply <- result{response: response, err: err}
	}
}

// handle isolates a single job so a panicking handler takes down neither
// the worker nor the process.
func (p *Pool) handle(j job) (response []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("request handler panicked", "service", j.handler.Name().String(), "panic", r)
			response = nil
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return j.handler.Handle(j.request)
}
