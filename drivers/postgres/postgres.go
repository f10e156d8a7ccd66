// Package postgres provides the godbc driver for PostgreSQL, backed by
// github.com/lib/pq. Importing the package registers the "postgresql" URL
// scheme.
//
// Cursor backend: the native connection streams rows, so result sets share
// the connection mutex (see drivers/sqlbase).
package postgres

import (
	"database/sql"
	"errors"
	"net/url"

	sqldriver "database/sql/driver"

	"github.com/lib/pq"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/driver"
	"github.com/shrek82/godbc/drivers/sqlbase"
)

const defaultPort = 5432

func init() {
	driver.Register(NewDriver())
}

// NewDriver builds the PostgreSQL driver for explicit registry wiring.
func NewDriver() driver.Driver {
	return sqlbase.NewDriver(&pq.Driver{}, dialect{})
}

type dialect struct{}

func (dialect) Name() string { return "postgresql" }

func (dialect) DSN(u *driver.URL, username, password string) (string, error) {
	dsn := url.URL{
		Scheme: "postgres",
		Host:   u.HostPort(defaultPort),
		Path:   "/" + u.Database,
	}
	if username != "" {
		dsn.User = url.UserPassword(username, password)
	}
	opts := url.Values{}
	for key, vals := range u.Options {
		if len(vals) > 0 {
			opts.Set(key, vals[0])
		}
	}
	if opts.Get("sslmode") == "" {
		opts.Set("sslmode", "disable")
	}
	dsn.RawQuery = opts.Encode()
	return dsn.String(), nil
}

func (dialect) ValidationQuery() string { return "SELECT 1" }

// DefaultIsolation is PostgreSQL's READ COMMITTED session default.
func (dialect) DefaultIsolation() core.IsolationLevel { return core.IsolationReadCommitted }

// NormalizeIsolation: PostgreSQL accepts READ UNCOMMITTED syntactically but
// runs it as READ COMMITTED, so the effective level is reported as the
// coalesced one. IsolationNone has no PostgreSQL equivalent.
func (dialect) NormalizeIsolation(level core.IsolationLevel) (core.IsolationLevel, error) {
	switch level {
	case core.IsolationNone:
		return 0, core.NewError(core.CodeUnsupportedIsolationLevel, "postgresql has no NONE isolation level")
	case core.IsolationReadUncommitted:
		return core.IsolationReadCommitted, nil
	}
	return level, nil
}

func (dialect) TxOptions(level core.IsolationLevel) sqldriver.TxOptions {
	return sqldriver.TxOptions{Isolation: sqldriver.IsolationLevel(sqlLevel(level))}
}

// IsSerializationConflict matches SQLSTATE 40001 (serialization_failure) and
// 40P01 (deadlock_detected).
func (dialect) IsSerializationConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func sqlLevel(level core.IsolationLevel) sql.IsolationLevel {
	switch level {
	case core.IsolationReadCommitted:
		return sql.LevelReadCommitted
	case core.IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	case core.IsolationSerializable:
		return sql.LevelSerializable
	}
	return sql.LevelDefault
}
