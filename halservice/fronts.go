// Package halservice constructs the four HAL service fronts, publishes
// them for discovery in a fixed order, and announces the live topology
// to the trusted side once registration completes.
package halservice

import (
	"github.com/trustyvm/keymint-hal/interfaces"
)

// Front is one logical HAL service identity. All fronts are read-only
// views over the same shared channel; a front never copies or owns the
// connection.
type Front struct {
	name    interfaces.ServiceName
	channel interfaces.Channel
}

func newFront(iface string, channel interfaces.Channel) *Front {
	// Interface names are package constants; construction cannot fail.
	name, err := interfaces.NewServiceName(iface, interfaces.ServiceInstance)
	if err != nil {
		panic(err)
	}
	return &Front{name: name, channel: channel}
}

// NewKeyMintDevice creates the IKeyMintDevice front.
func NewKeyMintDevice(channel interfaces.Channel) *Front {
	return newFront(interfaces.KeyMintInterface, channel)
}

// NewRemotelyProvisionedComponent creates the IRemotelyProvisionedComponent front.
func NewRemotelyProvisionedComponent(channel interfaces.Channel) *Front {
	return newFront(interfaces.RemoteProvisioningInterface, channel)
}

// NewSecureClock creates the ISecureClock front.
func NewSecureClock(channel interfaces.Channel) *Front {
	return newFront(interfaces.SecureClockInterface, channel)
}

// NewSharedSecret creates the ISharedSecret front.
func NewSharedSecret(channel interfaces.Channel) *Front {
	return newFront(interfaces.SharedSecretInterface, channel)
}

// Name returns the front's discovery name.
func (f *Front) Name() interfaces.ServiceName {
	return f.name
}

// Handle forwards one opaque request frame over the shared channel and
// returns the response frame. The frame contents belong to the external
// cryptographic protocol; this process never inspects them.
func (f *Front) Handle(request []byte) ([]byte, error) {
	return f.channel.Execute(request)
}
