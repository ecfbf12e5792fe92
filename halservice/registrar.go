package halservice

import (
	"fmt"
	"log/slog"

	"github.com/trustyvm/keymint-hal/interfaces"
)

// Registrar constructs the four HAL fronts and publishes them into the
// discovery registry.
type Registrar struct {
	channel  interfaces.Channel
	registry interfaces.ServiceRegistry
	log      *slog.Logger
}

// NewRegistrar creates a registrar binding fronts to the shared channel
// and publishing them into the given registry.
func NewRegistrar(channel interfaces.Channel, registry interfaces.ServiceRegistry, log *slog.Logger) *Registrar {
	return &Registrar{
		channel:  channel,
		registry: registry,
		log:      log,
	}
}

// RegisterAll publishes the fronts strictly in order: KeyMintDevice,
// RemotelyProvisionedComponent, SecureClock, SharedSecret. The first
// failure aborts the sequence. Fronts already published stay registered:
// the registry offers no unpublish, and the process aborts anyway, so a
// supervisor restart rebuilds the whole set.
func (r *Registrar) RegisterAll() ([]*Front, error) {
	fronts := []*Front{
		NewKeyMintDevice(r.channel),
		NewRemotelyProvisionedComponent(r.channel),
		NewSecureClock(r.channel),
		NewSharedSecret(r.channel),
	}

	for _, front := range fronts {
		if err := r.registry.Register(front.Name(), front); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", interfaces.ErrRegistration, front.Name(), err)
		}
		r.log.Info("registered HAL service", "service", front.Name().String())
	}
	return fronts, nil
}
