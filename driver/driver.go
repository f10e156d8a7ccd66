// Package driver holds the driver capability interface and the registry that
// maps connection-URL schemes to drivers. Backend packages register
// themselves in init(), so importing a driver package (usually with a blank
// import) makes its scheme available:
//
//	import _ "github.com/shrek82/godbc/drivers/sqlite"
//
// Hosts that prefer explicit wiring can build their own Registry value and
// skip the package-level one entirely.
package driver

import (
	"sync"

	"github.com/shrek82/godbc/core"
)

// Driver is the capability object for one backend family. A driver accepts a
// connection URL iff it matches the driver's scheme, and produces concrete
// Connections for it.
type Driver interface {
	// Name returns the URL scheme this driver serves (e.g. "mysql").
	Name() string

	// AcceptsURL reports whether the driver can open the given URL.
	AcceptsURL(url string) bool

	// Connect parses the URL and opens a connection. Credentials passed here
	// override any embedded in the URL.
	Connect(url, username, password string) (core.Connection, error)
}

// Registry is a thread-safe set of drivers keyed by scheme. Registration
// happens once at startup; lookups dominate afterwards, hence the RWMutex.
type Registry struct {
	mu      sync.RWMutex
	drivers []Driver
	byName  map[string]Driver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Driver)}
}

// Register adds a driver. Registering the same scheme again is a no-op, so
// duplicate blank imports are harmless.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[d.Name()]; ok {
		return
	}
	r.byName[d.Name()] = d
	r.drivers = append(r.drivers, d)
}

// Lookup returns the registered driver for a scheme.
func (r *Registry) Lookup(name string) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// Drivers returns a snapshot of the registered drivers in registration order.
func (r *Registry) Drivers() []Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Driver, len(r.drivers))
	copy(out, r.drivers)
	return out
}

// Connect dispatches the URL to the first accepting driver. It fails with
// CodeNoSuitableDriver when no registered driver recognizes the URL.
func (r *Registry) Connect(url, username, password string) (core.Connection, error) {
	for _, d := range r.Drivers() {
		if d.AcceptsURL(url) {
			return d.Connect(url, username, password)
		}
	}
	return nil, core.NewError(core.CodeNoSuitableDriver, "no registered driver accepts %q", url)
}

// defaultRegistry backs the package-level convenience functions.
var defaultRegistry = NewRegistry()

// Register adds a driver to the default registry.
func Register(d Driver) {
	defaultRegistry.Register(d)
}

// Default returns the process-wide registry that init()-time registration
// populates.
func Default() *Registry {
	return defaultRegistry
}

// Drivers lists the drivers registered with the default registry.
func Drivers() []Driver {
	return defaultRegistry.Drivers()
}

// Connect dispatches a URL through the default registry.
func Connect(url, username, password string) (core.Connection, error) {
	return defaultRegistry.Connect(url, username, password)
}
