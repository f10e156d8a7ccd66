// Package redis provides the godbc driver for Redis, backed by
// github.com/redis/go-redis/v9. Importing the package registers the "redis"
// URL scheme. Queries are Redis commands ("GET user:1", "HGETALL session:9");
// prepared statements substitute ? placeholders by position.
//
// Store-result backend: every reply is fully materialized client-side at
// execute time, so result sets are self-contained and need no shared mutex
// with the connection — unlike the cursor-based SQL drivers.
package redis

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/driver"
)

const (
	defaultPort = 6379
	opTimeout   = 5 * time.Second
)

func init() {
	driver.Register(NewDriver())
}

// NewDriver builds the Redis driver for explicit registry wiring.
func NewDriver() driver.Driver {
	return redisDriver{}
}

type redisDriver struct{}

func (redisDriver) Name() string { return "redis" }

func (redisDriver) AcceptsURL(url string) bool {
	return driver.HasScheme(url, "redis")
}

func (redisDriver) Connect(url, username, password string) (core.Connection, error) {
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
	db := 0
	if u.Database != "" {
		db, err = strconv.Atoi(u.Database)
		if err != nil {
			return nil, core.WrapError(core.CodeNoSuitableDriver, err, "redis database in %q must be numeric", url)
		}
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     u.HostPort(defaultPort),
		Username: username,
		Password: password,
		DB:       db,
		// One godbc Connection is one backend session; the pool above this
		// layer does the sharing.
		PoolSize:     1,
		MinIdleConns: 0,
	})
	conn := &Conn{client: client, autoCommit: true, stmts: make(map[*Stmt]struct{})}
	if err := conn.Ping(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return conn, nil
}

// Conn is one Redis session. The mutex guards connection and transaction
// state only; result sets are detached and never touch it.
type Conn struct {
	mu     sync.Mutex
	client *goredis.Client
	closed atomic.Bool

	autoCommit bool
	txActive   bool
	// queued holds write commands accumulated between Begin and Commit; they
	// are replayed through a MULTI/EXEC pipeline at commit time.
	queued [][]any

	stmts map[*Stmt]struct{}
}

var _ core.Connection = (*Conn)(nil)

// PrepareStatement parses a command template with ? placeholders.
func (c *Conn) PrepareStatement(command string) (core.PreparedStatement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil, core.ErrConnectionClosed("connection")
	}
	tokens, err := splitCommand(command)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, core.NewError(core.CodePrepareFailed, "empty redis command")
	}
	s := newStmt(c, command, tokens)
	c.stmts[s] = struct{}{}
	return s, nil
}

// ExecuteQuery runs a command and materializes its reply.
func (c *Conn) ExecuteQuery(command string) (core.ResultSet, error) {
	tokens, err := splitCommand(command)
	if err != nil {
		return nil, err
	}
	return c.runQuery(anyTokens(tokens))
}

// ExecuteUpdate runs a write command. Inside a transaction the command is
// queued and executed at Commit (the MULTI/EXEC model), reporting 0 rows
// until then.
func (c *Conn) ExecuteUpdate(command string) (uint64, error) {
	tokens, err := splitCommand(command)
	if err != nil {
		return 0, err
	}
	return c.runUpdate(anyTokens(tokens))
}

func (c *Conn) runQuery(args []any) (core.ResultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil, core.ErrConnectionClosed("connection")
	}
	if len(args) == 0 {
		return nil, core.NewError(core.CodeQueryFailed, "empty redis command")
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	reply, err := c.client.Do(ctx, args...).Result()
	if err != nil && err != goredis.Nil {
		return nil, core.WrapError(core.CodeQueryFailed, err, "redis command %v", args[0])
	}
	if err == goredis.Nil {
		reply = nil
	}
	return materialize(reply), nil
}

func (c *Conn) runUpdate(args []any) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return 0, core.ErrConnectionClosed("connection")
	}
	if len(args) == 0 {
		return 0, core.NewError(core.CodeUpdateFailed, "empty redis command")
	}
	if c.txActive {
		c.queued = append(c.queued, args)
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	reply, err := c.client.Do(ctx, args...).Result()
	if err != nil && err != goredis.Nil {
		return 0, core.WrapError(core.CodeUpdateFailed, err, "redis command %v", args[0])
	}
	return updateCount(reply), nil
}

// SetAutoCommit toggles autocommit; turning it off opens a queued
// transaction, turning it on commits a pending one.
func (c *Conn) SetAutoCommit(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if on {
		c.autoCommit = true
		if c.txActive {
			return c.commitLocked()
		}
		return nil
	}
	c.autoCommit = false
	c.txActive = true
	return nil
}

func (c *Conn) AutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoCommit
}

// BeginTransaction opens a command queue, flushed atomically at Commit via
// MULTI/EXEC. Returns false when one is already open.
func (c *Conn) BeginTransaction() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return false, core.ErrConnectionClosed("connection")
	}
	if c.txActive {
		return false, nil
	}
	c.txActive = true
	c.queued = nil
	return true, nil
}

// Commit flushes the queued commands through a MULTI/EXEC pipeline.
func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if !c.txActive {
		return nil
	}
	if err := c.commitLocked(); err != nil {
		return err
	}
	if !c.autoCommit {
		c.txActive = true
	}
	return nil
}

// Rollback discards the queued commands.
func (c *Conn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	c.queued = nil
	c.txActive = !c.autoCommit
	return nil
}

func (c *Conn) commitLocked() error {
	queued := c.queued
	c.queued = nil
	c.txActive = false
	if len(queued) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	pipe := c.client.TxPipeline()
	for _, args := range queued {
		pipe.Do(ctx, args...)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return core.WrapError(core.CodeUpdateFailed, err, "redis MULTI/EXEC failed")
	}
	return nil
}

func (c *Conn) TransactionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txActive
}

// SetTransactionIsolation accepts None and Serializable: MULTI/EXEC executes
// the queue atomically, which is redis's one and only guarantee.
func (c *Conn) SetTransactionIsolation(level core.IsolationLevel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	switch level {
	case core.IsolationNone, core.IsolationSerializable:
		return nil
	}
	return core.NewError(core.CodeUnsupportedIsolationLevel,
		"redis supports only NONE and SERIALIZABLE, not %s", level)
}

// TransactionIsolation always reports Serializable, the MULTI/EXEC level.
func (c *Conn) TransactionIsolation() (core.IsolationLevel, error) {
	if c.closed.Load() {
		return core.IsolationNone, core.ErrConnectionClosed("connection")
	}
	return core.IsolationSerializable, nil
}

// Ping validates the session.
func (c *Conn) Ping() error {
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return core.WrapError(core.CodeConnectionClosed, err, "redis ping failed")
	}
	return nil
}

func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// Close discards any queued transaction, closes live statements, and
// releases the client. Idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil
	}
	c.queued = nil
	c.txActive = false
	for s := range c.stmts {
		s.closeLocked()
	}
	c.closed.Store(true)
	if err := c.client.Close(); err != nil {
		return core.WrapError(core.CodeConnectionClosed, err, "closing redis client")
	}
	return nil
}
