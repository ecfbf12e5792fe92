// Package registry implements the discovery registry that HAL fronts are
// published into: an in-memory service manager for the serving process,
// and a testify mock for tests.
package registry

import (
	"fmt"
	"sync"

	"github.com/trustyvm/keymint-hal/interfaces"
)

// LocalRegistry is the in-process service manager. The dispatch surface
// resolves inbound request names against it.
type LocalRegistry struct {
	mu       sync.RWMutex
	handlers map[interfaces.ServiceName]interfaces.ServiceHandler
	order    []interfaces.ServiceName
}

// NewLocalRegistry creates an empty registry.
func NewLocalRegistry() *LocalRegistry {
	return &LocalRegistry{
		handlers: make(map[interfaces.ServiceName]interfaces.ServiceHandler),
	}
}

// Register publishes a handler under its discovery name. Republishing a
// name is rejected; the bring-up sequence registers each front once.
func (r *LocalRegistry) Register(name interfaces.ServiceName, handler interfaces.ServiceHandler) error {
	if err := name.Validate(); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("nil handler for %s", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("service %s already registered", name)
	}
	r.handlers[name] = handler
	r.order = append(r.order, name)
	return nil
}

// Lookup resolves a discovery name to its handler.
func (r *LocalRegistry) Lookup(name interfaces.ServiceName) (interfaces.ServiceHandler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrServiceNotFound, name)
	}
	return handler, nil
}

// Names lists registered names in registration order.
func (r *LocalRegistry) Names() []interfaces.ServiceName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]interfaces.ServiceName, len(r.order))
	copy(names, r.order)
	return names
}
