package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustyvm/keymint-hal/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type echoHandler struct {
	name interfaces.ServiceName
	err  error
}

func (h *echoHandler) Name() interfaces.ServiceName { return h.name }

func (h *echoHandler) Handle(request []byte) ([]byte, error) {
	if h.err != nil {
		return nil, h.err
	}
	return append([]byte("re:"), request...), nil
}

type panickingHandler struct{}

func (h *panickingHandler) Name() interfaces.ServiceName {
	return interfaces.ServiceName(interfaces.SecureClockInterface + "/default")
}

func (h *panickingHandler) Handle(request []byte) ([]byte, error) {
	panic("handler blew up")
}

func startPool(t *testing.T, workers int) (*Pool, chan struct{}) {
	t.Helper()
	pool := NewPool(workers, testLogger())
	done := make(chan struct{})
	go func() {
		pool.Run()
		close(done)
	}()
	return pool, done
}

func TestPool_Submit(t *testing.T) {
	pool, done := startPool(t, 2)

	resp, err := pool.Submit(context.Background(), &echoHandler{}, []byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, []byte("re:ping"), resp)

	pool.Close()
	<-done
}

func TestPool_HandlerError(t *testing.T) {
	pool, done := startPool(t, 1)
	defer func() { pool.Close(); <-done }()

	cause := errors.New("exchange failed")
	_, err := pool.Submit(context.Background(), &echoHandler{err: cause}, []byte("ping"))
	assert.ErrorIs(t, err, cause)
}

func TestPool_PanicContained(t *testing.T) {
	pool, done := startPool(t, 1)
	defer func() { pool.Close(); <-done }()

	_, err := pool.Submit(context.Background(), &panickingHandler{}, []byte("ping"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "handler panicked")

	// The worker survives the panic and keeps serving.
	resp, err := pool.Submit(context.Background(), &echoHandler{}, []byte("still alive"))
	require.NoError(t, err)
	assert.Equal(t, []byte("re:still alive"), resp)
}

func TestPool_ConcurrentSubmits(t *testing.T) {
	pool, done := startPool(t, 4)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := pool.Submit(context.Background(), &echoHandler{}, []byte("req"))
			assert.NoError(t, err)
			assert.Equal(t, []byte("re:req"), resp)
		}()
	}
	wg.Wait()

	pool.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pool did not drain after Close")
	}
}

func TestPool_SubmitHonorsContextWhileQueued(t *testing.T) {
	// No workers running: the job can never be picked up, so a
	// cancelled context must unblock the submitter.
	pool := NewPool(1, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Submit(ctx, &echoHandler{}, []byte("ping"))
	assert.ErrorIs(t, err, context.Canceled)
}
