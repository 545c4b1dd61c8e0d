package bot

import "sync"

// Registry holds registered modules in registration order.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
	names   map[string]struct{}
}

// NewRegistry creates a new module registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]struct{}),
	}
}

// Register adds a module to the registry. It panics if a module with the
// same name is already registered.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.names[m.Name()]; dup {
		panic("bot: Register called twice for module " + m.Name())
	}
	r.names[m.Name()] = struct{}{}
	r.modules = append(r.modules, m)
}

// Modules returns a snapshot of all registered modules.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Module, len(r.modules))
	copy(result, r.modules)
	return result
}

// globalRegistry is filled by module packages from init(); cmd/kasseta
// blank-imports the modules it ships.
var globalRegistry = NewRegistry()

// Register adds a module to the process-wide registry.
func Register(m Module) {
	globalRegistry.Register(m)
}

// Modules returns the modules of the process-wide registry.
func Modules() []Module {
	return globalRegistry.Modules()
}

// ResetGlobalRegistry empties the process-wide registry. Tests only.
func ResetGlobalRegistry() {
	globalRegistry = NewRegistry()
}
