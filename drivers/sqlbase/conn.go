package sqlbase

import (
	"context"
	"sync"
	"sync/atomic"

	sqldriver "database/sql/driver"

	"github.com/shrek82/godbc/core"
)

// Conn owns one vendor driver.Conn. The mutex serializes all native calls on
// the handle and is shared with every statement and result set created from
// this connection; those hold non-owning references back to the Conn and
// re-check liveness on every call.
type Conn struct {
	mu      sync.Mutex
	dc      sqldriver.Conn
	dialect Dialect

	closed     atomic.Bool
	autoCommit bool
	isolation  core.IsolationLevel
	tx         sqldriver.Tx

	// Live children, notified when the connection closes. Guarded by mu.
	stmts map[*Stmt]struct{}
	rows  map[*Rows]struct{}
}

var _ core.Connection = (*Conn)(nil)

func newConn(dc sqldriver.Conn, dialect Dialect) *Conn {
	return &Conn{
		dc:         dc,
		dialect:    dialect,
		autoCommit: true,
		isolation:  dialect.DefaultIsolation(),
		stmts:      make(map[*Stmt]struct{}),
		rows:       make(map[*Rows]struct{}),
	}
}

// PrepareStatement compiles a parameterized statement on the native handle.
func (c *Conn) PrepareStatement(query string) (core.PreparedStatement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil, core.ErrConnectionClosed("connection")
	}
	ds, err := c.dc.Prepare(query)
	if err != nil {
		return nil, core.WrapError(core.CodePrepareFailed, err, "preparing %q", query)
	}
	s := newStmt(c, ds, query)
	c.stmts[s] = struct{}{}
	return s, nil
}

// ExecuteQuery runs an ad-hoc query. The returned result set advances the
// native cursor row by row under this connection's mutex.
func (c *Conn) ExecuteQuery(query string) (core.ResultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil, core.ErrConnectionClosed("connection")
	}
	dr, ownStmt, err := c.queryLocked(query, nil)
	if err != nil {
		return nil, c.execError(core.CodeQueryFailed, err, query)
	}
	r := newRows(c, dr, ownStmt)
	c.rows[r] = struct{}{}
	return r, nil
}

// ExecuteUpdate runs an ad-hoc statement and reports affected rows.
func (c *Conn) ExecuteUpdate(query string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return 0, core.ErrConnectionClosed("connection")
	}
	res, err := c.execLocked(query, nil)
	if err != nil {
		return 0, c.execError(core.CodeUpdateFailed, err, query)
	}
	return affected(res), nil
}

// queryLocked dispatches through QueryerContext when the vendor supports it,
// falling back to an internal prepare whose statement is finalized with the
// result set. Caller holds mu.
func (c *Conn) queryLocked(query string, args []sqldriver.NamedValue) (sqldriver.Rows, sqldriver.Stmt, error) {
	if q, ok := c.dc.(sqldriver.QueryerContext); ok {
		dr, err := q.QueryContext(context.Background(), query, args)
		if err != sqldriver.ErrSkip {
			return dr, nil, err
		}
	}
	ds, err := c.dc.Prepare(query)
	if err != nil {
		return nil, nil, err
	}
	dr, err := stmtQuery(ds, args)
	if err != nil {
		ds.Close()
		return nil, nil, err
	}
	return dr, ds, nil
}

// execLocked mirrors queryLocked for row-count statements. Caller holds mu.
func (c *Conn) execLocked(query string, args []sqldriver.NamedValue) (sqldriver.Result, error) {
	if e, ok := c.dc.(sqldriver.ExecerContext); ok {
		res, err := e.ExecContext(context.Background(), query, args)
		if err != sqldriver.ErrSkip {
			return res, err
		}
	}
	ds, err := c.dc.Prepare(query)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	return stmtExec(ds, args)
}

// SetAutoCommit toggles autocommit. Turning it off opens a transaction if
// none is active; turning it on commits any active transaction.
func (c *Conn) SetAutoCommit(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if on {
		c.autoCommit = true
		if c.tx != nil {
			return c.commitLocked()
		}
		return nil
	}
	c.autoCommit = false
	if c.tx == nil {
		return c.beginLocked()
	}
	return nil
}

// AutoCommit reports the autocommit flag.
func (c *Conn) AutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoCommit
}

// BeginTransaction starts a transaction, returning false (and doing nothing)
// when one is already active.
func (c *Conn) BeginTransaction() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return false, core.ErrConnectionClosed("connection")
	}
	if c.tx != nil {
		return false, nil
	}
	if err := c.beginLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Commit commits the active transaction; with autocommit off a fresh
// transaction begins immediately. No-op without an active transaction.
func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if c.tx == nil {
		return nil
	}
	if err := c.commitLocked(); err != nil {
		return err
	}
	if !c.autoCommit {
		return c.beginLocked()
	}
	return nil
}

// Rollback aborts the active transaction; with autocommit off a fresh
// transaction begins immediately. No-op without an active transaction.
func (c *Conn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil
	if err := tx.Rollback(); err != nil {
		return core.WrapError(core.CodeQueryFailed, err, "rollback failed")
	}
	if !c.autoCommit {
		return c.beginLocked()
	}
	return nil
}

// TransactionActive reports whether a transaction is open.
func (c *Conn) TransactionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx != nil
}

// SetTransactionIsolation requests a level; the dialect may coalesce it to
// what the backend actually supports. A mid-flight transaction is committed
// and restarted under the new level, since none of these backends change it
// in place.
func (c *Conn) SetTransactionIsolation(level core.IsolationLevel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	effective, err := c.dialect.NormalizeIsolation(level)
	if err != nil {
		return err
	}
	if c.tx != nil {
		if err := c.commitLocked(); err != nil {
			return err
		}
		c.isolation = effective
		return c.beginLocked()
	}
	c.isolation = effective
	return nil
}

// TransactionIsolation returns the effective isolation level.
func (c *Conn) TransactionIsolation() (core.IsolationLevel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.IsolationNone, core.ErrConnectionClosed("connection")
	}
	return c.isolation, nil
}

// Ping validates the native handle.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if p, ok := c.dc.(sqldriver.Pinger); ok {
		if err := p.Ping(context.Background()); err != nil {
			return core.WrapError(core.CodeConnectionClosed, err, "ping failed")
		}
		return nil
	}
	dr, ownStmt, err := c.queryLocked(c.dialect.ValidationQuery(), nil)
	if err != nil {
		return core.WrapError(core.CodeConnectionClosed, err, "validation query failed")
	}
	_ = dr.Close()
	if ownStmt != nil {
		_ = ownStmt.Close()
	}
	return nil
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// Close rolls back any active transaction, transitions every live statement
// and result set to closed, and releases the native handle. Idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil
	}
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	for r := range c.rows {
		r.closeLocked()
	}
	for s := range c.stmts {
		s.closeLocked()
	}
	c.closed.Store(true)
	if err := c.dc.Close(); err != nil {
		return core.WrapError(core.CodeConnectionClosed, err, "closing native connection")
	}
	return nil
}

func (c *Conn) beginLocked() error {
	var tx sqldriver.Tx
	var err error
	if b, ok := c.dc.(sqldriver.ConnBeginTx); ok {
		tx, err = b.BeginTx(context.Background(), c.dialect.TxOptions(c.isolation))
	} else {
		tx, err = c.dc.Begin()
	}
	if err != nil {
		return core.WrapError(core.CodeQueryFailed, err, "begin transaction failed")
	}
	c.tx = tx
	return nil
}

func (c *Conn) commitLocked() error {
	tx := c.tx
	c.tx = nil
	if err := tx.Commit(); err != nil {
		if c.dialect.IsSerializationConflict(err) {
			return core.WrapError(core.CodeSerializationConflict, err, "commit aborted by serialization conflict")
		}
		return core.WrapError(core.CodeQueryFailed, err, "commit failed")
	}
	return nil
}

// execError classifies a native execution failure.
func (c *Conn) execError(code string, err error, query string) error {
	if c.dialect.IsSerializationConflict(err) {
		return core.WrapError(core.CodeSerializationConflict, err, "serialization conflict executing %q", query)
	}
	return core.WrapError(code, err, "executing %q", query)
}

// affected converts a vendor result into the row count, treating unknown
// (negative) counts as zero.
func affected(res sqldriver.Result) uint64 {
	if res == nil {
		return 0
	}
	n, err := res.RowsAffected()
	if err != nil || n < 0 {
		return 0
	}
	return uint64(n)
}
