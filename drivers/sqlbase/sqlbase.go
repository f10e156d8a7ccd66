// Package sqlbase adapts any database/sql/driver implementation to the godbc
// Connection contract. The vendor driver's Conn is the native backend handle:
// it streams result rows lazily (cursor model), so every native call that
// touches it — prepare, execute, row advancement, finalization, ping — is
// serialized behind one mutex shared by the connection and all of its live
// statements and result sets. Running two of those calls concurrently on the
// same handle is undefined behavior in the vendor drivers, hence the shared
// lock rather than one per object.
package sqlbase

import (
	sqldriver "database/sql/driver"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/driver"
)

// Dialect captures what differs between SQL vendors at this layer: DSN
// construction, validation, and isolation-level normalization.
type Dialect interface {
	// Name is the URL scheme ("mysql", "postgresql", "sqlite").
	Name() string

	// DSN renders the vendor's data source name from a parsed URL and
	// resolved credentials.
	DSN(u *driver.URL, username, password string) (string, error)

	// ValidationQuery is the lightweight liveness probe for this backend.
	ValidationQuery() string

	// DefaultIsolation is the level a fresh session runs at.
	DefaultIsolation() core.IsolationLevel

	// NormalizeIsolation maps a requested level to the level the backend
	// will actually honor, or fails with CodeUnsupportedIsolationLevel.
	NormalizeIsolation(level core.IsolationLevel) (core.IsolationLevel, error)

	// TxOptions translates an already-normalized level into the options
	// passed to the vendor driver's BeginTx.
	TxOptions(level core.IsolationLevel) sqldriver.TxOptions

	// IsSerializationConflict reports whether a vendor error is a
	// backend-signaled transaction serialization failure.
	IsSerializationConflict(err error) bool
}

// Driver is a godbc driver built from a vendor database/sql driver plus a
// Dialect. Vendor packages construct one and register it.
type Driver struct {
	vendor  sqldriver.Driver
	dialect Dialect
}

var _ driver.Driver = (*Driver)(nil)

// NewDriver wraps a vendor driver with its dialect.
func NewDriver(vendor sqldriver.Driver, dialect Dialect) *Driver {
	return &Driver{vendor: vendor, dialect: dialect}
}

// Name returns the dialect's URL scheme.
func (d *Driver) Name() string {
	return d.dialect.Name()
}

// AcceptsURL reports whether url carries this driver's scheme.
func (d *Driver) AcceptsURL(url string) bool {
	return driver.HasScheme(url, d.dialect.Name())
}

// Connect parses the URL, builds the vendor DSN, and opens a native
// connection. Credentials passed here override any embedded in the URL.
func (d *Driver) Connect(url, username, password string) (core.Connection, error) {
	u, err := driver.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if username == "" {
		username = u.Username
	}
	if password == "" {
		password = u.Password
	}
	dsn, err := d.dialect.DSN(u, username, password)
	if err != nil {
		return nil, err
	}
	dc, err := d.vendor.Open(dsn)
	if err != nil {
		return nil, core.WrapError(core.CodeQueryFailed, err, "opening %s connection", d.dialect.Name())
	}
	return newConn(dc, d.dialect), nil
}
