package pool

import (
	"sync/atomic"

	"github.com/shrek82/godbc/core"
)

// PooledConnection is a connection on loan from a Pool. It delegates every
// operation to the underlying concrete connection; Close returns the
// connection to the pool instead of tearing it down. After Close (or a
// second Close, which is a no-op) every operation fails with
// CodeConnectionClosed.
type PooledConnection struct {
	pool     *Pool
	entry    *entry
	returned atomic.Bool
}

var _ core.Connection = (*PooledConnection)(nil)

func newPooledConnection(p *Pool, e *entry) *PooledConnection {
	return &PooledConnection{pool: p, entry: e}
}

// conn returns the delegate or fails once the wrapper has been returned.
func (c *PooledConnection) conn() (core.Connection, error) {
	if c.returned.Load() {
		return nil, core.ErrConnectionClosed("pooled connection")
	}
	return c.entry.conn, nil
}

// Close returns the connection to the pool. Idempotent: only the first call
// hands the connection back.
func (c *PooledConnection) Close() error {
	if !c.returned.CompareAndSwap(false, true) {
		return nil
	}
	c.pool.put(c.entry)
	return nil
}

// Closed reports whether this wrapper has been returned or the delegate has
// died underneath it.
func (c *PooledConnection) Closed() bool {
	return c.returned.Load() || c.entry.conn.Closed()
}

func (c *PooledConnection) PrepareStatement(query string) (core.PreparedStatement, error) {
	conn, err := c.conn()
	if err != nil {
		return nil, err
	}
	return conn.PrepareStatement(query)
}

func (c *PooledConnection) ExecuteQuery(query string) (core.ResultSet, error) {
	conn, err := c.conn()
	if err != nil {
		return nil, err
	}
	return conn.ExecuteQuery(query)
}

func (c *PooledConnection) ExecuteUpdate(query string) (uint64, error) {
	conn, err := c.conn()
	if err != nil {
		return 0, err
	}
	return conn.ExecuteUpdate(query)
}

func (c *PooledConnection) SetAutoCommit(on bool) error {
	conn, err := c.conn()
	if err != nil {
		return err
	}
	return conn.SetAutoCommit(on)
}

func (c *PooledConnection) AutoCommit() bool {
	if c.returned.Load() {
		return false
	}
	return c.entry.conn.AutoCommit()
}

func (c *PooledConnection) BeginTransaction() (bool, error) {
	conn, err := c.conn()
	if err != nil {
		return false, err
	}
	return conn.BeginTransaction()
}

func (c *PooledConnection) Commit() error {
	conn, err := c.conn()
	if err != nil {
		return err
	}
	return conn.Commit()
}

func (c *PooledConnection) Rollback() error {
	conn, err := c.conn()
	if err != nil {
		return err
	}
	return conn.Rollback()
}

func (c *PooledConnection) TransactionActive() bool {
	if c.returned.Load() {
		return false
	}
	return c.entry.conn.TransactionActive()
}

func (c *PooledConnection) SetTransactionIsolation(level core.IsolationLevel) error {
	conn, err := c.conn()
	if err != nil {
		return err
	}
	return conn.SetTransactionIsolation(level)
}

func (c *PooledConnection) TransactionIsolation() (core.IsolationLevel, error) {
	conn, err := c.conn()
	if err != nil {
		return core.IsolationNone, err
	}
	return conn.TransactionIsolation()
}

func (c *PooledConnection) Ping() error {
	conn, err := c.conn()
	if err != nil {
		return err
	}
	return conn.Ping()
}
