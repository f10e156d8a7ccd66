// Package txmanager coordinates a unit of work on a borrowed pooled
// connection: borrow, begin, run, commit or roll back, return.
package txmanager

import (
	"context"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/pool"
)

// Manager runs units of work transactionally against a pool.
type Manager struct {
	pool *pool.Pool
}

// New creates a Manager over p.
func New(p *pool.Pool) *Manager {
	return &Manager{pool: p}
}

// Do borrows a connection, begins a transaction, and runs fn. A nil return
// commits; an error or panic rolls back (the panic is re-raised). The
// connection goes back to the pool either way.
func (m *Manager) Do(ctx context.Context, fn func(conn core.Connection) error) (err error) {
	pc, err := m.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer pc.Close()

	if _, err = pc.BeginTransaction(); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = pc.Rollback()
			panic(p)
		}
		if err != nil {
			_ = pc.Rollback()
			return
		}
		err = pc.Commit()
	}()

	err = fn(pc)
	return err
}

// DoIsolated is Do under a specific isolation level, set before the
// transaction begins.
func (m *Manager) DoIsolated(ctx context.Context, level core.IsolationLevel, fn func(conn core.Connection) error) (err error) {
	pc, err := m.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer pc.Close()

	if err = pc.SetTransactionIsolation(level); err != nil {
		return err
	}
	if _, err = pc.BeginTransaction(); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = pc.Rollback()
			panic(p)
		}
		if err != nil {
			_ = pc.Rollback()
			return
		}
		err = pc.Commit()
	}()

	err = fn(pc)
	return err
}
