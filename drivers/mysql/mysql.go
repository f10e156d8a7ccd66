// Package mysql provides the godbc driver for MySQL and compatible servers,
// backed by github.com/go-sql-driver/mysql. Importing the package registers
// the "mysql" URL scheme.
//
// Cursor backend: the native connection streams rows, so result sets share
// the connection mutex (see drivers/sqlbase).
package mysql

import (
	"database/sql"
	"errors"

	sqldriver "database/sql/driver"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/driver"
	"github.com/shrek82/godbc/drivers/sqlbase"
)

const defaultPort = 3306

func init() {
	driver.Register(NewDriver())
}

// NewDriver builds the MySQL driver for explicit registry wiring.
func NewDriver() driver.Driver {
	return sqlbase.NewDriver(&gomysql.MySQLDriver{}, dialect{})
}

type dialect struct{}

func (dialect) Name() string { return "mysql" }

func (dialect) DSN(u *driver.URL, username, password string) (string, error) {
	cfg := gomysql.NewConfig()
	cfg.User = username
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = u.HostPort(defaultPort)
	cfg.DBName = u.Database
	// DATETIME columns surface as time.Time instead of raw bytes.
	cfg.ParseTime = true
	for key, vals := range u.Options {
		if len(vals) > 0 {
			if cfg.Params == nil {
				cfg.Params = make(map[string]string)
			}
			cfg.Params[key] = vals[0]
		}
	}
	return cfg.FormatDSN(), nil
}

func (dialect) ValidationQuery() string { return "SELECT 1" }

// DefaultIsolation is MySQL's REPEATABLE READ session default.
func (dialect) DefaultIsolation() core.IsolationLevel { return core.IsolationRepeatableRead }

// NormalizeIsolation: MySQL honors all four SQL levels natively, so the
// effective level equals the requested one. IsolationNone has no MySQL
// equivalent.
func (dialect) NormalizeIsolation(level core.IsolationLevel) (core.IsolationLevel, error) {
	if level == core.IsolationNone {
		return 0, core.NewError(core.CodeUnsupportedIsolationLevel, "mysql has no NONE isolation level")
	}
	return level, nil
}

func (dialect) TxOptions(level core.IsolationLevel) sqldriver.TxOptions {
	return sqldriver.TxOptions{Isolation: sqldriver.IsolationLevel(sqlLevel(level))}
}

// IsSerializationConflict matches deadlock and lock-wait aborts, which MySQL
// reports when a transaction loses a serialization race.
func (dialect) IsSerializationConflict(err error) bool {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		// 1213 ER_LOCK_DEADLOCK, 1205 ER_LOCK_WAIT_TIMEOUT
		return myErr.Number == 1213 || myErr.Number == 1205
	}
	return false
}

func sqlLevel(level core.IsolationLevel) sql.IsolationLevel {
	switch level {
	case core.IsolationReadUncommitted:
		return sql.LevelReadUncommitted
	case core.IsolationReadCommitted:
		return sql.LevelReadCommitted
	case core.IsolationRepeatableRead:
		return sql.LevelRepeatableRead
	case core.IsolationSerializable:
		return sql.LevelSerializable
	}
	return sql.LevelDefault
}
