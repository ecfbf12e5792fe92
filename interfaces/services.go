package interfaces

// CommService is the single physical connection to the trusted execution
// environment. Execute performs one synchronous request/response
// exchange of opaque frames. Implementations are not required to be safe
// for concurrent use; serialization is the shared channel's job.
type CommService interface {
	Execute(request []byte) ([]byte, error)
	Close() error
}

// Channel executes one request/response exchange against the trusted
// side. All HAL fronts share a single Channel; exchanges are strictly
// serialized and frames never exceed MaxFrameSize.
type Channel interface {
	Execute(request []byte) ([]byte, error)
}

// ServiceHandler is a registered HAL front: a named endpoint that
// forwards one opaque request frame and returns the response frame.
type ServiceHandler interface {
	Name() ServiceName
	Handle(request []byte) ([]byte, error)
}

// ServiceRegistry publishes HAL fronts for discovery. It is passed
// explicitly into the registrar so tests can substitute a fake.
type ServiceRegistry interface {
	// Register publishes a handler under its discovery name. An error
	// aborts the bring-up sequence; handlers registered earlier are not
	// rolled back.
	Register(name ServiceName, handler ServiceHandler) error

	// Lookup resolves a discovery name to its registered handler,
	// returning ErrServiceNotFound for unknown names.
	Lookup(name ServiceName) (ServiceHandler, error)

	// Names lists all registered discovery names in registration order.
	Names() []ServiceName
}
