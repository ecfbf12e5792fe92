// Package bringup sequences HAL startup: acquire the comm service
// connection, optionally run the provisioning handshake, register the
// four fronts, and announce the live topology. Any failure along the way
// aborts the whole process; a supervisor is expected to restart the
// sequence from scratch.
package bringup

import (
	"errors"
	"log/slog"
	"time"

	"go.uber.org/atomic"

	"github.com/trustyvm/keymint-hal/channel"
	"github.com/trustyvm/keymint-hal/comms"
	"github.com/trustyvm/keymint-hal/halservice"
	"github.com/trustyvm/keymint-hal/interfaces"
	"github.com/trustyvm/keymint-hal/provision"
)

// State is one stop of the bring-up sequence.
type State string

const (
	StateInit         State = "init"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateProvisioning State = "provisioning"
	StateRegistering  State = "registering"
	StateAnnounced    State = "announced"
	StateServing      State = "serving"
	StateAborted      State = "aborted"
)

// Config assembles the collaborators for one bring-up run.
type Config struct {
	// Dialer establishes the comm service connection.
	Dialer comms.Dialer

	// MaxAttempts and RetryDelay configure the connection broker. Zero
	// values select the fixed defaults (5 attempts, 1 second).
	MaxAttempts int
	RetryDelay  time.Duration

	// Nonsecure selects the diagnostic variant: the boot-state and
	// attestation-identity handshake runs before registration. The
	// production variant skips it; boot state is already present in the
	// trusted side via the bootloader and factory provisioning.
	Nonsecure bool

	// Provider supplies provisioning snapshots. Required when Nonsecure
	// is set.
	Provider provision.Provider

	// Registry receives the four HAL fronts.
	Registry interfaces.ServiceRegistry

	Log *slog.Logger

	// Sleep overrides the broker's inter-attempt wait in tests.
	Sleep func(time.Duration)
}

// Sequence executes the bring-up state machine and holds what it built.
type Sequence struct {
	cfg   Config
	state atomic.String

	channel *channel.SharedChannel
	fronts  []*halservice.Front
}

// New creates a sequence in the Init state.
func New(cfg Config) (*Sequence, error) {
	if cfg.Dialer == nil {
		return nil, errors.New("bringup: dialer is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("bringup: registry is required")
	}
	if cfg.Nonsecure && cfg.Provider == nil {
		return nil, errors.New("bringup: nonsecure variant requires a provisioning data provider")
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = comms.DefaultMaxAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = comms.DefaultRetryDelay
	}

	s := &Sequence{cfg: cfg}
	s.state.Store(string(StateInit))
	return s, nil
}

// State reports the current bring-up state.
func (s *Sequence) State() State {
	return State(s.state.Load())
}

// Channel returns the shared channel once Run has passed Connected.
func (s *Sequence) Channel() *channel.SharedChannel {
	return s.channel
}

// Fronts returns the registered fronts once Run has passed Registering.
func (s *Sequence) Fronts() []*halservice.Front {
	return s.fronts
}

// Run drives the sequence to Serving or returns the fatal error that
// sent it to Aborted. Run is called once per process.
func (s *Sequence) Run() error {
	log := s.cfg.Log

	s.setState(StateConnecting)
	broker := comms.NewBroker(s.cfg.Dialer, s.cfg.MaxAttempts, s.cfg.RetryDelay, log)
	broker.Sleep = s.cfg.Sleep
	conn, err := broker.Connect()
	if err != nil {
		return s.abort(err)
	}
	s.setState(StateConnected)
	s.channel = channel.New(conn, log)

	if s.cfg.Nonsecure {
		s.setState(StateProvisioning)
		provisioner := provision.New(s.channel, s.cfg.Provider, log)
		if err := provisioner.Run(); err != nil {
			return s.abort(err)
		}
	}

	s.setState(StateRegistering)
	registrar := halservice.NewRegistrar(s.channel, s.cfg.Registry, log)
	fronts, err := registrar.RegisterAll()
	if err != nil {
		return s.abort(err)
	}
	s.fronts = fronts

	announcer := halservice.NewAnnouncer(s.channel, log)
	if err := announcer.Announce(fronts); err != nil {
		return s.abort(err)
	}
	s.setState(StateAnnounced)

	s.setState(StateServing)
	return nil
}

func (s *Sequence) setState(state State) {
	s.state.Store(string(state))
	s.cfg.Log.Debug("bring-up state changed", "state", string(state))
}

func (s *Sequence) abort(err error) error {
	s.setState(StateAborted)
	s.cfg.Log.Error("bring-up aborted", "err", err)
	return err
}
