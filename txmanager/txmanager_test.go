package txmanager

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/pool"
)

// txConn records the transaction verbs so the manager's sequencing is
// observable.
type txConn struct {
	mu        sync.Mutex
	txActive  bool
	begins    int
	commits   int
	rollbacks int
	isolation core.IsolationLevel
	closed    bool
}

func (c *txConn) PrepareStatement(query string) (core.PreparedStatement, error) {
	return nil, core.NewError(core.CodePrepareFailed, "not implemented")
}

func (c *txConn) ExecuteQuery(query string) (core.ResultSet, error) {
	return core.NewMemoryResultSet([]string{"value"}, nil), nil
}

func (c *txConn) ExecuteUpdate(query string) (uint64, error) { return 1, nil }

func (c *txConn) SetAutoCommit(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !on {
		c.txActive = true
	}
	return nil
}

func (c *txConn) AutoCommit() bool { return true }

func (c *txConn) BeginTransaction() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.txActive {
		return false, nil
	}
	c.txActive = true
	c.begins++
	return true, nil
}

func (c *txConn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits++
	c.txActive = false
	return nil
}

func (c *txConn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollbacks++
	c.txActive = false
	return nil
}

func (c *txConn) TransactionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txActive
}

func (c *txConn) SetTransactionIsolation(level core.IsolationLevel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isolation = level
	return nil
}

func (c *txConn) TransactionIsolation() (core.IsolationLevel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isolation, nil
}

func (c *txConn) Ping() error { return nil }

func (c *txConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *txConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func newTestManager(t *testing.T) (*Manager, *txConn) {
	t.Helper()
	conn := &txConn{}
	p, err := pool.NewWithOpener(
		pool.Config{MaxSize: 1, ConnectionTimeout: time.Second},
		func() (core.Connection, error) { return conn, nil },
	)
	if err != nil {
		t.Fatalf("pool construction failed: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return New(p), conn
}

func TestDoCommitsOnSuccess(t *testing.T) {
	m, conn := newTestManager(t)

	err := m.Do(context.Background(), func(c core.Connection) error {
		if !c.TransactionActive() {
			t.Error("fn should run inside a transaction")
		}
		_, err := c.ExecuteUpdate("UPDATE t SET v = 1")
		return err
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if conn.begins != 1 || conn.commits != 1 || conn.rollbacks != 0 {
		t.Errorf("begins=%d commits=%d rollbacks=%d, want 1/1/0", conn.begins, conn.commits, conn.rollbacks)
	}
}

func TestDoRollsBackOnError(t *testing.T) {
	m, conn := newTestManager(t)

	boom := fmt.Errorf("constraint violated")
	err := m.Do(context.Background(), func(c core.Connection) error {
		return boom
	})
	if err != boom {
		t.Fatalf("Do should surface fn's error, got %v", err)
	}
	if conn.commits != 0 || conn.rollbacks != 1 {
		t.Errorf("commits=%d rollbacks=%d, want 0/1", conn.commits, conn.rollbacks)
	}
}

func TestDoRollsBackOnPanic(t *testing.T) {
	m, conn := newTestManager(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("Do should re-raise the panic")
			}
		}()
		m.Do(context.Background(), func(c core.Connection) error {
			panic("something went sideways")
		})
	}()

	if conn.commits != 0 || conn.rollbacks != 1 {
		t.Errorf("commits=%d rollbacks=%d after panic, want 0/1", conn.commits, conn.rollbacks)
	}
}

func TestDoReturnsConnectionToPool(t *testing.T) {
	m, _ := newTestManager(t)

	// With maxSize=1, consecutive units of work only run if each returns its
	// connection.
	for i := 0; i < 3; i++ {
		if err := m.Do(context.Background(), func(c core.Connection) error { return nil }); err != nil {
			t.Fatalf("Round %d failed: %v", i, err)
		}
	}
}

func TestDoIsolatedSetsLevelBeforeBegin(t *testing.T) {
	m, conn := newTestManager(t)

	err := m.DoIsolated(context.Background(), core.IsolationSerializable, func(c core.Connection) error {
		level, err := c.TransactionIsolation()
		if err != nil {
			return err
		}
		if level != core.IsolationSerializable {
			t.Errorf("Isolation inside fn = %v", level)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("DoIsolated failed: %v", err)
	}
	if conn.isolation != core.IsolationSerializable {
		t.Errorf("Isolation = %v, want Serializable", conn.isolation)
	}
	if conn.commits != 1 {
		t.Errorf("commits = %d, want 1", conn.commits)
	}
}

func TestDoPropagatesPoolErrors(t *testing.T) {
	conn := &txConn{}
	p, err := pool.NewWithOpener(
		pool.Config{MaxSize: 1, ConnectionTimeout: 50 * time.Millisecond},
		func() (core.Connection, error) { return conn, nil },
	)
	if err != nil {
		t.Fatalf("pool construction failed: %v", err)
	}
	defer p.Close()
	m := New(p)

	// Hold the only connection so Do times out borrowing.
	pc, err := p.Get()
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer pc.Close()

	err = m.Do(context.Background(), func(c core.Connection) error { return nil })
	if !core.IsCode(err, core.CodePoolExhausted) {
		t.Errorf("Expected %s, got %v", core.CodePoolExhausted, err)
	}
}
