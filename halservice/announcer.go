package halservice

import (
	"fmt"
	"log/slog"

	"github.com/trustyvm/keymint-hal/interfaces"
	"github.com/trustyvm/keymint-hal/wire"
)

// HalInfo tells the trusted side which service identities are live, so
// it can validate its expected peer set.
type HalInfo struct {
	Services []string `cbor:"services"`
	Instance string   `cbor:"instance"`
}

// Announcer sends the one-time topology announcement after all fronts
// have registered.
type Announcer struct {
	channel interfaces.Channel
	log     *slog.Logger
}

// NewAnnouncer creates an announcer bound to the shared channel.
func NewAnnouncer(channel interfaces.Channel, log *slog.Logger) *Announcer {
	return &Announcer{channel: channel, log: log}
}

// Announce sends the hal-info message describing the registered fronts.
// Failure is fatal to bring-up.
func (a *Announcer) Announce(fronts []*Front) error {
	info := HalInfo{
		Services: make([]string, 0, len(fronts)),
		Instance: interfaces.ServiceInstance,
	}
	for _, front := range fronts {
		info.Services = append(info.Services, front.Name().Interface())
	}

	frame, err := wire.EncodeEnvelope(wire.KindHalInfo, info)
	if err != nil {
		return fmt.Errorf("encoding hal info: %w", err)
	}
	response, err := a.channel.Execute(frame)
	if err != nil {
		return fmt.Errorf("announcing hal info: %w", err)
	}
	if err := wire.DecodeAck(response); err != nil {
		return fmt.Errorf("announcing hal info: %w", err)
	}

	a.log.Info("announced live HAL services to trusted side", "count", len(info.Services))
	return nil
}
