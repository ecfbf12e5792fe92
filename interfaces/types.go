// Package interfaces defines the core interfaces and types for the
// KeyMint HAL front-end. It provides the contract between components
// without implementation details.
package interfaces

import (
	"errors"
	"fmt"
	"strings"
)

// MaxFrameSize is the largest request or response frame, in bytes, that
// the shared channel to the trusted side accepts in either direction.
const MaxFrameSize = 4000

// ServiceInstance is the instance suffix under which all HAL services
// are published.
const ServiceInstance = "default"

// Interface names of the four HAL services multiplexed onto the shared
// channel, and the internal name under which the comm service itself is
// discovered.
const (
	KeyMintInterface            = "android.hardware.security.keymint.IKeyMintDevice"
	RemoteProvisioningInterface = "android.hardware.security.keymint.IRemotelyProvisionedComponent"
	SecureClockInterface        = "android.hardware.security.secureclock.ISecureClock"
	SharedSecretInterface       = "android.hardware.security.sharedsecret.ISharedSecret"

	CommServiceName = "android.keymint.trusty.commservice.ICommService/default"
)

// ServiceName is a full discovery name in "<interface>/<instance>" form,
// for example "android.hardware.security.secureclock.ISecureClock/default".
type ServiceName string

// NewServiceName builds a discovery name from an interface name and an
// instance suffix.
func NewServiceName(iface, instance string) (ServiceName, error) {
	if iface == "" || instance == "" {
		return "", errors.New("interface and instance must not be empty")
	}
	if strings.ContainsRune(iface, '/') {
		return "", fmt.Errorf("interface name %q must not contain '/'", iface)
	}
	if !strings.ContainsRune(iface, '.') {
		return "", fmt.Errorf("interface name %q is not fully qualified", iface)
	}
	return ServiceName(iface + "/" + instance), nil
}

// String returns the discovery name as a string.
func (n ServiceName) String() string {
	return string(n)
}

// Interface returns the interface part of the discovery name.
func (n ServiceName) Interface() string {
	iface, _, _ := strings.Cut(string(n), "/")
	return iface
}

// Instance returns the instance part of the discovery name.
func (n ServiceName) Instance() string {
	_, instance, _ := strings.Cut(string(n), "/")
	return instance
}

// Validate checks that the name has the "<interface>/<instance>" form.
func (n ServiceName) Validate() error {
	iface, instance, found := strings.Cut(string(n), "/")
	if !found {
		return fmt.Errorf("service name %q missing instance suffix", n)
	}
	_, err := NewServiceName(iface, instance)
	return err
}
