package interfaces

import "errors"

// Error taxonomy for the bring-up sequence and the shared channel.
// Callers match with errors.Is; concrete causes are wrapped alongside.
var (
	// ErrConnection means the comm service connection could not be
	// established after all retry attempts. Fatal at startup.
	ErrConnection = errors.New("comm service connection failed")

	// ErrChannel means a single exchange failed at the transport level.
	// Scoped to the call that triggered it.
	ErrChannel = errors.New("channel exchange failed")

	// ErrFrameTooLarge means an outbound request exceeded MaxFrameSize.
	// Rejected before anything is sent.
	ErrFrameTooLarge = errors.New("request frame exceeds maximum size")

	// ErrChannelPoisoned means a prior exchange failed abnormally while
	// holding the channel lock. Fatal during bring-up, per-call failure
	// once serving.
	ErrChannelPoisoned = errors.New("shared channel poisoned")

	// ErrRegistration means the discovery registry rejected a publish
	// request. Fatal, aborts the remainder of startup.
	ErrRegistration = errors.New("service registration failed")

	// ErrProvisioning means the mandatory boot-info send failed. Fatal.
	ErrProvisioning = errors.New("boot provisioning failed")

	// ErrServiceNotFound is returned by registry lookups for names that
	// were never registered.
	ErrServiceNotFound = errors.New("service not registered")
)
