package comms

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustyvm/keymint-hal/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCommService struct{}

func (nopCommService) Execute(request []byte) ([]byte, error) { return nil, nil }
func (nopCommService) Close() error                           { return nil }

// scriptedDialer fails until attempt succeedOn, or always when
// succeedOn is 0. Each failure carries its attempt number so tests can
// check which cause ends up in the final error.
type scriptedDialer struct {
	succeedOn int
	attempts  int
}

func (d *scriptedDialer) Dial() (interfaces.CommService, error) {
	d.attempts++
	if d.succeedOn != 0 && d.attempts >= d.succeedOn {
		return nopCommService{}, nil
	}
	return nil, fmt.Errorf("dial failure on attempt %d", d.attempts)
}

func TestBroker_SucceedsImmediately(t *testing.T) {
	dialer := &scriptedDialer{succeedOn: 1}
	broker := NewBroker(dialer, DefaultMaxAttempts, DefaultRetryDelay, testLogger())

	slept := 0
	broker.Sleep = func(time.Duration) { slept++ }

	conn, err := broker.Connect()
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Equal(t, 1, dialer.attempts, "Should connect on the first attempt")
	assert.Equal(t, 0, slept, "A first-attempt success must not wait at all")
}

func TestBroker_DelaysBetweenAttempts(t *testing.T) {
	// Success on attempt k means exactly k-1 delays elapsed.
	for succeedOn := 2; succeedOn <= DefaultMaxAttempts; succeedOn++ {
		dialer := &scriptedDialer{succeedOn: succeedOn}
		broker := NewBroker(dialer, DefaultMaxAttempts, DefaultRetryDelay, testLogger())

		slept := 0
		var sleptFor time.Duration
		broker.Sleep = func(d time.Duration) {
			slept++
			sleptFor = d
		}

		conn, err := broker.Connect()
		require.NoError(t, err, "succeedOn=%d", succeedOn)
		require.NotNil(t, conn)
		assert.Equal(t, succeedOn, dialer.attempts)
		assert.Equal(t, succeedOn-1, slept, "Success on attempt %d must follow exactly %d delays", succeedOn, succeedOn-1)
		assert.Equal(t, DefaultRetryDelay, sleptFor, "Delay is constant, no backoff growth")
	}
}

func TestBroker_AllAttemptsFail(t *testing.T) {
	dialer := &scriptedDialer{succeedOn: 0}
	broker := NewBroker(dialer, DefaultMaxAttempts, DefaultRetryDelay, testLogger())

	slept := 0
	broker.Sleep = func(time.Duration) { slept++ }

	_, err := broker.Connect()
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrConnection)
	assert.Equal(t, DefaultMaxAttempts, dialer.attempts)
	assert.Equal(t, DefaultMaxAttempts-1, slept, "No delay after the final failed attempt")

	// The final attempt's cause is wrapped, not an earlier one.
	assert.ErrorContains(t, err, fmt.Sprintf("dial failure on attempt %d", DefaultMaxAttempts))
	assert.NotContains(t, err.Error(), "attempt 1")
}

func TestBroker_DefaultsInvalidAttemptCount(t *testing.T) {
	dialer := &scriptedDialer{succeedOn: 0}
	broker := NewBroker(dialer, 0, time.Millisecond, testLogger())
	broker.Sleep = func(time.Duration) {}

	_, err := broker.Connect()
	require.Error(t, err)
	assert.Equal(t, DefaultMaxAttempts, dialer.attempts)
	assert.True(t, errors.Is(err, interfaces.ErrConnection))
}
