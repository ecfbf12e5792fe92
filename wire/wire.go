// Package wire defines the CBOR envelope for bring-up messages sent to
// the trusted side: boot state, attestation identity, and the hal-info
// topology announcement. Frames carrying HAL operations themselves are
// opaque to this process and never pass through this package.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Message kinds understood by the trusted side during bring-up.
const (
	KindSetBootInfo       = "set_boot_info"
	KindSetAttestationIDs = "set_attestation_ids"
	KindHalInfo           = "hal_info"
)

// Envelope wraps one bring-up message with its kind tag.
type Envelope struct {
	Kind string          `cbor:"kind"`
	Body cbor.RawMessage `cbor:"body,omitempty"`
}

// Ack is the trusted side's reply to a bring-up message. An empty
// response frame is treated as success.
type Ack struct {
	Error string `cbor:"error,omitempty"`
}

// EncodeEnvelope CBOR-encodes body and wraps it in an Envelope of the
// given kind.
func EncodeEnvelope(kind string, body any) ([]byte, error) {
	raw, err := cbor.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s body: %w", kind, err)
	}
	data, err := cbor.Marshal(Envelope{Kind: kind, Body: raw})
	if err != nil {
		return nil, fmt.Errorf("encoding %s envelope: %w", kind, err)
	}
	return data, nil
}

// DecodeEnvelope unwraps an envelope frame.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Kind == "" {
		return nil, fmt.Errorf("envelope missing kind tag")
	}
	return &env, nil
}

// DecodeAck interprets a response frame as an acknowledgement. A nil or
// empty frame means the trusted side accepted the message.
func DecodeAck(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var ack Ack
	if err := cbor.Unmarshal(data, &ack); err != nil {
		return fmt.Errorf("decoding ack: %w", err)
	}
	if ack.Error != "" {
		return fmt.Errorf("trusted side rejected message: %s", ack.Error)
	}
	return nil
}
