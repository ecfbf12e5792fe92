package registry

import (
	"github.com/stretchr/testify/mock"

	"github.com/trustyvm/keymint-hal/interfaces"
)

// MockRegistry mocks the ServiceRegistry interface
type MockRegistry struct {
	mock.Mock
}

// Register mocks the Register method
func (m *MockRegistry) Register(name interfaces.ServiceName, handler interfaces.ServiceHandler) error {
	args := m.Called(name, handler)
	return args.Error(0)
}

// Lookup mocks the Lookup method
func (m *MockRegistry) Lookup(name interfaces.ServiceName) (interfaces.ServiceHandler, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.ServiceHandler), args.Error(1)
}

// Names mocks the Names method
func (m *MockRegistry) Names() []interfaces.ServiceName {
	args := m.Called()
	return args.Get(0).([]interfaces.ServiceName)
}
