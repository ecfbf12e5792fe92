package provision

import (
	"fmt"
	"log/slog"

	"github.com/trustyvm/keymint-hal/interfaces"
	"github.com/trustyvm/keymint-hal/wire"
)

// Provisioner sends the one-time bring-up handshake over the shared
// channel: boot state first, attestation identity second.
type Provisioner struct {
	channel  interfaces.Channel
	provider Provider
	log      *slog.Logger
}

// New creates a provisioner bound to the shared channel.
func New(channel interfaces.Channel, provider Provider, log *slog.Logger) *Provisioner {
	return &Provisioner{
		channel:  channel,
		provider: provider,
		log:      log,
	}
}

// Run performs the handshake. The boot-info send is mandatory: any
// failure aborts startup. The attestation-ID send is best-effort: the
// trusted side can re-request identity later, so a failure is logged
// and startup proceeds.
func (p *Provisioner) Run() error {
	boot, err := p.provider.BootInfo()
	if err != nil {
		return fmt.Errorf("%w: gathering boot info: %w", interfaces.ErrProvisioning, err)
	}
	if err := p.send(wire.KindSetBootInfo, boot); err != nil {
		return fmt.Errorf("%w: sending boot info: %w", interfaces.ErrProvisioning, err)
	}
	p.log.Info("boot info sent to trusted side",
		"bootState", boot.VerifiedBootState,
		"bootPatchlevel", boot.BootPatchlevel)

	ids, err := p.provider.AttestationIDs()
	if err != nil {
		p.log.Error("gathering attestation IDs failed, continuing without", "err", err)
		return nil
	}
	if err := p.send(wire.KindSetAttestationIDs, ids); err != nil {
		p.log.Error("sending attestation IDs failed, continuing without", "err", err)
		return nil
	}
	p.log.Info("attestation IDs sent to trusted side", "brand", ids.Brand, "model", ids.Model)
	return nil
}

func (p *Provisioner) send(kind string, body any) error {
	frame, err := wire.EncodeEnvelope(kind, body)
	if err != nil {
		return err
	}
	response, err := p.channel.Execute(frame)
	if err != nil {
		return err
	}
	return wire.DecodeAck(response)
}
