// Package provision implements the optional one-time boot-state and
// attestation-identity handshake sent to the trusted side before normal
// service. It runs only in the non-secure (diagnostic) variant; on a
// production device the bootloader and factory provisioning populate
// this state directly.
package provision

// BootInfo is an immutable snapshot of the device's verified-boot state,
// gathered once at startup and sent to the trusted side exactly once.
type BootInfo struct {
	VerifiedBootKey   []byte `cbor:"verified_boot_key" json:"verified_boot_key"`
	VerifiedBootHash  []byte `cbor:"verified_boot_hash" json:"verified_boot_hash"`
	VerifiedBootState string `cbor:"verified_boot_state" json:"verified_boot_state"`
	DeviceBootLocked  bool   `cbor:"device_boot_locked" json:"device_boot_locked"`
	BootPatchlevel    uint32 `cbor:"boot_patchlevel" json:"boot_patchlevel"`
}

// AttestationIdSet carries the device identity fields embedded into
// attestation certificates. Advisory: the trusted side can operate
// without it and re-request it later.
type AttestationIdSet struct {
	Brand        string `cbor:"brand" json:"brand"`
	Device       string `cbor:"device" json:"device"`
	Product      string `cbor:"product" json:"product"`
	Serial       string `cbor:"serial" json:"serial"`
	IMEI         string `cbor:"imei,omitempty" json:"imei,omitempty"`
	MEID         string `cbor:"meid,omitempty" json:"meid,omitempty"`
	Manufacturer string `cbor:"manufacturer" json:"manufacturer"`
	Model        string `cbor:"model" json:"model"`
}
