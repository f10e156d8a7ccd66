// Package sqlite provides the godbc driver for SQLite, backed by
// github.com/mattn/go-sqlite3. Importing the package registers the "sqlite"
// URL scheme. URLs carry the database path after the scheme:
//
//	godbc:sqlite::memory:
//	godbc:sqlite:/var/data/app.db?cache=shared
//
// Cursor backend: sqlite steps through result rows on the live connection
// handle, so result sets share the connection mutex (see drivers/sqlbase).
package sqlite

import (
	"errors"

	sqldriver "database/sql/driver"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/driver"
	"github.com/shrek82/godbc/drivers/sqlbase"
)

func init() {
	driver.Register(NewDriver())
}

// NewDriver builds the SQLite driver for explicit registry wiring.
func NewDriver() driver.Driver {
	return sqlbase.NewDriver(&sqlite3.SQLiteDriver{}, dialect{})
}

type dialect struct{}

func (dialect) Name() string { return "sqlite" }

func (dialect) DSN(u *driver.URL, _, _ string) (string, error) {
	path := u.Path
	if path == "" {
		path = u.Database
	}
	if path == "" {
		return "", core.NewError(core.CodeNoSuitableDriver, "sqlite URL %q carries no database path", u.Raw)
	}
	if enc := u.Options.Encode(); enc != "" {
		return path + "?" + enc, nil
	}
	return path, nil
}

func (dialect) ValidationQuery() string { return "SELECT 1" }

// DefaultIsolation: sqlite transactions are always serializable.
func (dialect) DefaultIsolation() core.IsolationLevel { return core.IsolationSerializable }

// NormalizeIsolation: sqlite runs every transaction serializable, so all four
// SQL levels coalesce to SERIALIZABLE. IsolationNone has no equivalent.
func (dialect) NormalizeIsolation(level core.IsolationLevel) (core.IsolationLevel, error) {
	if level == core.IsolationNone {
		return 0, core.NewError(core.CodeUnsupportedIsolationLevel, "sqlite has no NONE isolation level")
	}
	return core.IsolationSerializable, nil
}

// TxOptions always passes the default level; the vendor driver rejects
// explicit ones, and sqlite is serializable regardless.
func (dialect) TxOptions(core.IsolationLevel) sqldriver.TxOptions {
	return sqldriver.TxOptions{}
}

// IsSerializationConflict matches SQLITE_BUSY and SQLITE_LOCKED, sqlite's
// way of aborting the losing side of a write race.
func (dialect) IsSerializationConflict(err error) bool {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked
	}
	return false
}
