package pipeline

import (
	"fmt"
	"sync"
)

// The registry maps configuration keys to plugin factories so the hosting
// agent can select plugins by name without any runtime type loading.

type OutputFactory func(deps Dependencies) (OutputDataPlugin, error)
type InputFactory func(deps Dependencies) (InputDataPlugin, error)

var (
	registryMutex  sync.RWMutex
	outputRegistry = map[string]OutputFactory{}
	inputRegistry  = map[string]InputFactory{}
)

// RegisterOutput makes an output plugin constructible under the given key.
// Registering the same key twice panics; that is a programming error.
func RegisterOutput(name string, factory OutputFactory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := outputRegistry[name]; exists {
		panic(fmt.Sprintf("output plugin '%s' registered twice", name))
	}
	outputRegistry[name] = factory
}

// RegisterInput makes an input plugin constructible under the given key.
func RegisterInput(name string, factory InputFactory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := inputRegistry[name]; exists {
		panic(fmt.Sprintf("input plugin '%s' registered twice", name))
	}
	inputRegistry[name] = factory
}

// NewOutput constructs the output plugin registered under the given key.
func NewOutput(name string, deps Dependencies) (OutputDataPlugin, error) {
	registryMutex.RLock()
	factory, exists := outputRegistry[name]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown output plugin '%s'", name)
	}
	return factory(deps)
}

// NewInput constructs the input plugin registered under the given key.
func NewInput(name string, deps Dependencies) (InputDataPlugin, error) {
	registryMutex.RLock()
	factory, exists := inputRegistry[name]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown input plugin '%s'", name)
	}
	return factory(deps)
}
