// Package builtin implements the runtime's builtin module registry
// (spec §4.13): a name-to-object map that the resolver and CJS/ESM
// executors consult before ever touching the VFS, populated by the host
// with Go-backed implementations (or stubs) of Node's built-in modules.
//
// There is no teacher analog for a builtin-module registry specifically,
// since mutagen has no module system of its own; the map-with-replace-
// semantics shape here is grounded on the same plugin-registry pattern
// used for pkg/kernel's `use`, generalized to this package's simpler
// name-keyed, non-ordered registration (a builtin has no install-order
// dependency on another builtin the way a kernel plugin can depend on
// another plugin).
package builtin

import (
	"sync"
)

// Registry holds the set of builtin modules available to the loader,
// keyed by their bare specifier (e.g. "fs", "path", "events").
type Registry struct {
	mu      sync.RWMutex
	modules map[string]interface{}
}

// NewRegistry constructs an empty builtin registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]interface{})}
}

// Register installs or replaces the builtin module named name with
// value, which is whatever object the host wants require("name") (or
// import from "name") to observe as the module's exports.
func (r *Registry) Register(name string, value interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[name] = value
}

// Unregister removes a builtin module, if present.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.modules, name)
}

// Has reports whether name is registered as a builtin.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.modules[name]
	return ok
}

// Lookup returns the registered value for name, if any.
func (r *Registry) Lookup(name string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.modules[name]
	return value, ok
}

// Names returns the currently registered builtin module names, in no
// particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	return names
}
