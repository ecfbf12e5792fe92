package bringup

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trustyvm/keymint-hal/interfaces"
	"github.com/trustyvm/keymint-hal/provision"
	"github.com/trustyvm/keymint-hal/registry"
	"github.com/trustyvm/keymint-hal/wire"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCommService acks every bring-up message, optionally failing
// selected envelope kinds. It records the kinds it saw.
type fakeCommService struct {
	failKinds map[string]error
	kinds     []string
}

func (s *fakeCommService) Execute(request []byte) ([]byte, error) {
	env, err := wire.DecodeEnvelope(request)
	if err != nil {
		return nil, err
	}
	s.kinds = append(s.kinds, env.Kind)
	if err := s.failKinds[env.Kind]; err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *fakeCommService) Close() error { return nil }

// fakeDialer fails until attempt succeedOn.
type fakeDialer struct {
	succeedOn int
	attempts  int
	conn      interfaces.CommService
}

func (d *fakeDialer) Dial() (interfaces.CommService, error) {
	d.attempts++
	if d.attempts >= d.succeedOn {
		return d.conn, nil
	}
	return nil, fmt.Errorf("comm service not up yet (attempt %d)", d.attempts)
}

var testProvider = &provision.StaticProvider{
	Boot: provision.BootInfo{VerifiedBootState: "green", BootPatchlevel: 20260801},
	IDs:  provision.AttestationIdSet{Brand: "generic", Model: "cuttlefish"},
}

func TestSequence_DiagnosticMode(t *testing.T) {
	// Connection succeeds immediately, boot info succeeds, the
	// attestation-ID send fails, registration and announcement succeed:
	// the process must still reach Serving.
	conn := &fakeCommService{failKinds: map[string]error{
		wire.KindSetAttestationIDs: errors.New("attestation store busy"),
	}}
	reg := registry.NewLocalRegistry()

	seq, err := New(Config{
		Dialer:    &fakeDialer{succeedOn: 1, conn: conn},
		Nonsecure: true,
		Provider:  testProvider,
		Registry:  reg,
		Log:       testLogger(),
		Sleep:     func(time.Duration) {},
	})
	require.NoError(t, err)
	assert.Equal(t, StateInit, seq.State())

	require.NoError(t, seq.Run(), "An attestation-ID failure must not abort bring-up")
	assert.Equal(t, StateServing, seq.State())

	assert.Equal(t, []string{wire.KindSetBootInfo, wire.KindSetAttestationIDs, wire.KindHalInfo}, conn.kinds)
	assert.Len(t, reg.Names(), 4)
	assert.Len(t, seq.Fronts(), 4)
}

func TestSequence_ProductionMode(t *testing.T) {
	// Attempts 1-4 fail, attempt 5 succeeds; no provisioning messages
	// are sent; total pre-success wait is exactly 4x the retry delay.
	conn := &fakeCommService{}
	dialer := &fakeDialer{succeedOn: 5, conn: conn}
	reg := registry.NewLocalRegistry()

	var waited time.Duration
	seq, err := New(Config{
		Dialer:     dialer,
		RetryDelay: time.Second,
		Registry:   reg,
		Log:        testLogger(),
		Sleep:      func(d time.Duration) { waited += d },
	})
	require.NoError(t, err)

	require.NoError(t, seq.Run())
	assert.Equal(t, StateServing, seq.State())
	assert.Equal(t, 5, dialer.attempts)
	assert.Equal(t, 4*time.Second, waited, "Startup delay is exactly 4x the fixed retry delay")

	assert.Equal(t, []string{wire.KindHalInfo}, conn.kinds,
		"No provisioning messages in the production variant")
	assert.Len(t, reg.Names(), 4)
}

func TestSequence_ConnectionFailureAborts(t *testing.T) {
	seq, err := New(Config{
		Dialer:   &fakeDialer{succeedOn: 100, conn: &fakeCommService{}},
		Registry: registry.NewLocalRegistry(),
		Log:      testLogger(),
		Sleep:    func(time.Duration) {},
	})
	require.NoError(t, err)

	err = seq.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrConnection)
	assert.Equal(t, StateAborted, seq.State())
}

func TestSequence_BootInfoFailureAborts(t *testing.T) {
	conn := &fakeCommService{failKinds: map[string]error{
		wire.KindSetBootInfo: errors.New("trusted side rejected boot info"),
	}}

	seq, err := New(Config{
		Dialer:    &fakeDialer{succeedOn: 1, conn: conn},
		Nonsecure: true,
		Provider:  testProvider,
		Registry:  registry.NewLocalRegistry(),
		Log:       testLogger(),
	})
	require.NoError(t, err)

	err = seq.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrProvisioning)
	assert.Equal(t, StateAborted, seq.State())
}

func TestSequence_RegistrationFailureAborts(t *testing.T) {
	conn := &fakeCommService{}
	secureClockName, err := interfaces.NewServiceName(interfaces.SecureClockInterface, interfaces.ServiceInstance)
	require.NoError(t, err)

	mockReg := new(registry.MockRegistry)
	mockReg.On("Register", secureClockName, mock.Anything).Return(errors.New("registry rejected publish"))
	mockReg.On("Register", mock.Anything, mock.Anything).Return(nil)

	seq, err := New(Config{
		Dialer:   &fakeDialer{succeedOn: 1, conn: conn},
		Registry: mockReg,
		Log:      testLogger(),
	})
	require.NoError(t, err)

	err = seq.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrRegistration)
	mockReg.AssertNumberOfCalls(t, "Register", 3)
	assert.Equal(t, StateAborted, seq.State())
	assert.Empty(t, conn.kinds, "No announcement after a registration failure")
}

func TestSequence_AnnouncementFailureAborts(t *testing.T) {
	conn := &fakeCommService{failKinds: map[string]error{
		wire.KindHalInfo: errors.New("peer set mismatch"),
	}}

	seq, err := New(Config{
		Dialer:   &fakeDialer{succeedOn: 1, conn: conn},
		Registry: registry.NewLocalRegistry(),
		Log:      testLogger(),
	})
	require.NoError(t, err)

	err = seq.Run()
	require.Error(t, err)
	assert.Equal(t, StateAborted, seq.State())
}

func TestSequence_ConfigValidation(t *testing.T) {
	_, err := New(Config{Registry: registry.NewLocalRegistry(), Log: testLogger()})
	assert.Error(t, err, "A dialer is required")

	_, err = New(Config{
		Dialer: &fakeDialer{succeedOn: 1},
		Log:    testLogger(),
	})
	assert.Error(t, err, "A registry is required")

	_, err = New(Config{
		Dialer:    &fakeDialer{succeedOn: 1},
		Registry:  registry.NewLocalRegistry(),
		Nonsecure: true,
		Log:       testLogger(),
	})
	assert.Error(t, err, "The nonsecure variant requires a provider")
}
