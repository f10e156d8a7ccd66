// Package pool implements a bounded, validated connection pool over any
// registered godbc driver. Borrowed connections are wrapped so that Close
// returns them to the pool instead of tearing down the backend session.
//
// Locking: the pool's own bookkeeping (idle stack, active set, counters) is
// guarded by one internal mutex. Native calls — connection creation,
// validation, session reset, teardown — always happen outside that mutex, so
// holding the pool lock never waits on a per-connection mutex.
package pool

import (
	"context"
	"time"

	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/driver"
	"github.com/shrek82/godbc/logger"
)

// Opener establishes one concrete connection. The pool calls it for the
// initial fill, for growth, and for replacements.
type Opener func() (core.Connection, error)

// Stats is a point-in-time snapshot of pool accounting.
type Stats struct {
	Active      int
	Idle        int
	Total       int
	Borrows     uint64
	Returns     uint64
	Timeouts    uint64
	Invalidated uint64
}

// entry is the pool's bookkeeping for one concrete connection.
type entry struct {
	conn      core.Connection
	createdAt time.Time
	idleSince time.Time
}

// Pool owns a bounded collection of concrete connections and lends them out
// as PooledConnections. Safe for concurrent use.
type Pool struct {
	cfg  Config
	open Opener
	log  logger.Logger

	// slots are borrow permits: one per concurrently lent connection, so a
	// borrower blocks (up to ConnectionTimeout) only when MaxSize callers
	// already hold connections.
	slots *semaphore.Weighted

	mu     sync.Mutex
	idle   []*entry
	active map[*entry]struct{}
	total  int
	closed bool

	borrows     uint64
	returns     uint64
	timeouts    uint64
	invalidated uint64

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// New builds a pool that opens connections through the default driver
// registry using cfg.URL and the configured credentials.
func New(cfg Config) (*Pool, error) {
	return NewWithRegistry(driver.Default(), cfg)
}

// NewWithRegistry is New with an explicit registry, for hosts that wire
// drivers by dependency injection instead of init() registration.
func NewWithRegistry(reg *driver.Registry, cfg Config) (*Pool, error) {
	return NewWithOpener(cfg, func() (core.Connection, error) {
		return reg.Connect(cfg.URL, cfg.Username, cfg.Password)
	})
}

// NewWithOpener builds a pool over an arbitrary connection factory.
func NewWithOpener(cfg Config, open Opener) (*Pool, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		cfg:       cfg,
		open:      open,
		log:       logger.NewStdLogger().WithFields(map[string]any{"pool": cfg.URL}),
		slots:     semaphore.NewWeighted(int64(cfg.MaxSize)),
		active:    make(map[*entry]struct{}),
		sweepStop: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}

	// Initial fill. Failures are logged, not fatal: the pool starts degraded
	// and the sweeper keeps retrying the MinIdle floor.
	for i := 0; i < cfg.InitialSize; i++ {
		e, err := p.create()
		if err != nil {
			p.log.Error("initial connection %d/%d failed: %v", i+1, cfg.InitialSize, err)
			break
		}
		p.mu.Lock()
		e.idleSince = time.Now()
		p.idle = append(p.idle, e)
		p.mu.Unlock()
	}

	go p.sweep()
	return p, nil
}

// SetLogger replaces the pool's logger.
func (p *Pool) SetLogger(l logger.Logger) {
	p.log = l
}

// Get borrows a connection, waiting up to the configured ConnectionTimeout.
func (p *Pool) Get() (*PooledConnection, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.ConnectionTimeout)
	defer cancel()
	return p.GetContext(ctx)
}

// GetContext borrows a connection, waiting until ctx expires. Expiry fails
// with CodePoolExhausted; a closed pool fails with CodePoolClosed.
func (p *Pool) GetContext(ctx context.Context) (*PooledConnection, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, core.NewError(core.CodePoolClosed, "pool is closed")
	}
	p.mu.Unlock()

	if err := p.slots.Acquire(ctx, 1); err != nil {
		p.mu.Lock()
		p.timeouts++
		p.mu.Unlock()
		return nil, core.WrapError(core.CodePoolExhausted, err,
			"no connection became available within the connection timeout")
	}

	e, err := p.acquireEntry(ctx)
	if err != nil {
		p.slots.Release(1)
		return nil, err
	}

	p.mu.Lock()
	p.active[e] = struct{}{}
	p.borrows++
	p.mu.Unlock()
	return newPooledConnection(p, e), nil
}

// acquireEntry produces a validated entry while the caller holds a borrow
// slot. At most one validation failure is replaced before giving up.
func (p *Pool) acquireEntry(ctx context.Context) (*entry, error) {
	invalid := 0
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, core.NewError(core.CodePoolClosed, "pool is closed")
		}
		var e *entry
		if n := len(p.idle); n > 0 {
			e = p.idle[n-1]
			p.idle = p.idle[:n-1]
		} else if p.total < p.cfg.MaxSize {
			p.total++ // reserve before the native dial
			p.mu.Unlock()
			e, err := p.dial()
			if err != nil {
				p.mu.Lock()
				p.total--
				p.mu.Unlock()
				return nil, err
			}
			return e, nil
		}
		p.mu.Unlock()

		if e != nil {
			if !p.cfg.TestOnBorrow || p.validate(e.conn) == nil {
				return e, nil
			}
			p.discard(e)
			invalid++
			if invalid > 1 {
				return nil, core.NewError(core.CodePoolExhausted,
					"borrowed connections failed validation twice, giving up")
			}
			continue
		}

		// No idle connection and the pool is at MaxSize with a replacement or
		// top-up still in flight. Poll until one lands or ctx expires.
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.timeouts++
			p.mu.Unlock()
			return nil, core.WrapError(core.CodePoolExhausted, ctx.Err(),
				"no connection became available within the connection timeout")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// create opens a connection and registers it in total. Used by the initial
// fill and the sweeper's top-up, which reserve nothing beforehand.
func (p *Pool) create() (*entry, error) {
	p.mu.Lock()
	if p.closed || p.total >= p.cfg.MaxSize {
		p.mu.Unlock()
		return nil, core.NewError(core.CodePoolClosed, "pool cannot grow")
	}
	p.total++
	p.mu.Unlock()

	e, err := p.dial()
	if err != nil {
		p.mu.Lock()
		p.total--
		p.mu.Unlock()
		return nil, err
	}
	return e, nil
}

// dial performs the native connect. The caller has already reserved a total
// slot.
func (p *Pool) dial() (*entry, error) {
	conn, err := p.open()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &entry{conn: conn, createdAt: now, idleSince: now}, nil
}

// validate checks a connection with the configured query, or the driver's
// Ping when none is set.
func (p *Pool) validate(conn core.Connection) error {
	if p.cfg.ValidationQuery != "" {
		rs, err := conn.ExecuteQuery(p.cfg.ValidationQuery)
		if err != nil {
			return err
		}
		return rs.Close()
	}
	return conn.Ping()
}

// discard closes a connection and drops it from the accounting.
func (p *Pool) discard(e *entry) {
	if err := e.conn.Close(); err != nil {
		p.log.Warn("closing invalid connection: %v", err)
	}
	p.mu.Lock()
	p.total--
	p.invalidated++
	p.mu.Unlock()
}

// put is the return path used by PooledConnection.Close. It never blocks the
// pool lock on native calls.
func (p *Pool) put(e *entry) {
	p.mu.Lock()
	delete(p.active, e)
	p.returns++
	closed := p.closed
	p.mu.Unlock()

	defer p.slots.Release(1)

	if closed {
		p.destroy(e)
		return
	}

	if p.cfg.TestOnReturn && p.validate(e.conn) != nil {
		p.discard(e)
		go p.topUp()
		return
	}

	// Session reset: abandon any open transaction, force autocommit back on.
	if e.conn.TransactionActive() {
		if err := e.conn.Rollback(); err != nil {
			p.log.Warn("rollback on return failed, discarding connection: %v", err)
			p.discard(e)
			go p.topUp()
			return
		}
	}
	if err := e.conn.SetAutoCommit(true); err != nil {
		p.log.Warn("autocommit reset failed, discarding connection: %v", err)
		p.discard(e)
		go p.topUp()
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.destroy(e)
		return
	}
	e.idleSince = time.Now()
	p.idle = append(p.idle, e)
	p.mu.Unlock()
}

// destroy closes a connection after the pool itself has shut down.
func (p *Pool) destroy(e *entry) {
	if err := e.conn.Close(); err != nil {
		p.log.Warn("closing connection: %v", err)
	}
	p.mu.Lock()
	p.total--
	p.mu.Unlock()
}

// topUp restores the MinIdle floor. One creation failure aborts the round;
// the next sweep retries.
func (p *Pool) topUp() {
	for {
		p.mu.Lock()
		need := p.cfg.MinIdle - len(p.idle)
		room := p.cfg.MaxSize - p.total
		stop := p.closed || need <= 0 || room <= 0
		p.mu.Unlock()
		if stop {
			return
		}
		e, err := p.create()
		if err != nil {
			p.log.Warn("top-up connection failed: %v", err)
			return
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			p.destroy(e)
			return
		}
		e.idleSince = time.Now()
		p.idle = append(p.idle, e)
		p.mu.Unlock()
	}
}

// sweep periodically evicts idle connections past IdleTimeout (keeping the
// MinIdle floor), retires connections past MaxLifetime, and tops the idle
// set back up.
func (p *Pool) sweep() {
	defer close(p.sweepDone)
	ticker := time.NewTicker(p.cfg.ValidationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.sweepStop:
			return
		case <-ticker.C:
			p.sweepOnce(time.Now())
			p.topUp()
		}
	}
}

func (p *Pool) sweepOnce(now time.Time) {
	var evict []*entry
	p.mu.Lock()
	kept := p.idle[:0]
	for _, e := range p.idle {
		expired := p.cfg.MaxLifetime > 0 && now.Sub(e.createdAt) > p.cfg.MaxLifetime
		stale := p.cfg.IdleTimeout > 0 && now.Sub(e.idleSince) > p.cfg.IdleTimeout
		// IdleTimeout never shrinks below the MinIdle floor; MaxLifetime does,
		// the top-up that follows restores it with fresh connections.
		if expired || (stale && len(kept)+1 > p.cfg.MinIdle) {
			evict = append(evict, e)
			continue
		}
		kept = append(kept, e)
	}
	p.idle = kept
	p.total -= len(evict)
	p.mu.Unlock()

	for _, e := range evict {
		if err := e.conn.Close(); err != nil {
			p.log.Warn("closing evicted connection: %v", err)
		}
	}
	if len(evict) > 0 {
		p.log.Debug("sweep evicted %d connections", len(evict))
	}
}

// Stats returns a snapshot of the pool's accounting.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Active:      len(p.active),
		Idle:        len(p.idle),
		Total:       p.total,
		Borrows:     p.borrows,
		Returns:     p.returns,
		Timeouts:    p.timeouts,
		Invalidated: p.invalidated,
	}
}

// Close shuts the pool down: idle connections are closed now, active ones
// when they come back. Further Get calls fail with CodePoolClosed.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.total -= len(idle)
	p.mu.Unlock()

	close(p.sweepStop)
	<-p.sweepDone

	for _, e := range idle {
		if err := e.conn.Close(); err != nil {
			p.log.Warn("closing idle connection: %v", err)
		}
	}
	return nil
}
