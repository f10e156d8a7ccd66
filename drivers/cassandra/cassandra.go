// Package cassandra provides the godbc driver for Cassandra and ScyllaDB,
// backed by github.com/gocql/gocql. Importing the package registers the
// "cassandra" and "scylladb" URL schemes.
//
// Cursor backend: gocql iterators page rows lazily from the cluster, so
// result sets share the connection mutex. Cassandra has no transactional
// isolation; "transactions" are logged batches — updates accumulate between
// BeginTransaction and Commit and are applied atomically by the batch, and
// the effective isolation level is reported as NONE.
package cassandra

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"

	"github.com/shrek82/godbc/core"
	"github.com/shrek82/godbc/driver"
)

const defaultPort = 9042

func init() {
	driver.Register(NewDriver())
}

// NewDriver builds the Cassandra/ScyllaDB driver for explicit registry
// wiring.
func NewDriver() driver.Driver {
	return cqlDriver{}
}

type cqlDriver struct{}

func (cqlDriver) Name() string { return "cassandra" }

func (cqlDriver) AcceptsURL(url string) bool {
	return driver.HasScheme(url, "cassandra") || driver.HasScheme(url, "scylladb")
}

func (cqlDriver) Connect(url, username, password string) (core.Connection, error) {
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
	cluster := gocql.NewCluster(u.Host)
	if u.Port != 0 {
		cluster.Port = u.Port
	} else {
		cluster.Port = defaultPort
	}
	cluster.Keyspace = u.Database
	cluster.Timeout = 5 * time.Second
	if username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{Username: username, Password: password}
	}
	if cons := u.Option("consistency", ""); cons != "" {
		level, err := gocql.ParseConsistencyWrapper(cons)
		if err != nil {
			return nil, core.WrapError(core.CodeNoSuitableDriver, err, "bad consistency option in %q", url)
		}
		cluster.Consistency = level
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, core.WrapError(core.CodeQueryFailed, err, "connecting to %s", u.HostPort(defaultPort))
	}
	return &Conn{
		session:    session,
		autoCommit: true,
		stmts:      make(map[*Stmt]struct{}),
		rows:       make(map[*Rows]struct{}),
	}, nil
}

// Conn is one Cassandra session. The mutex is the shared cursor mutex:
// statements and result sets borrow it for every native call.
type Conn struct {
	mu      sync.Mutex
	session *gocql.Session
	closed  atomic.Bool

	autoCommit bool
	batch      *gocql.Batch

	stmts map[*Stmt]struct{}
	rows  map[*Rows]struct{}
}

var _ core.Connection = (*Conn)(nil)

// PrepareStatement wraps a CQL statement with ? placeholders.
func (c *Conn) PrepareStatement(query string) (core.PreparedStatement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil, core.ErrConnectionClosed("connection")
	}
	s := newStmt(c, query)
	c.stmts[s] = struct{}{}
	return s, nil
}

// ExecuteQuery runs a CQL query and returns a paging cursor over its rows.
func (c *Conn) ExecuteQuery(query string) (core.ResultSet, error) {
	return c.runQuery(query, nil)
}

// ExecuteUpdate runs a CQL statement. Inside a transaction it is added to
// the batch instead. Cassandra does not report affected-row counts, so the
// result is always 0.
func (c *Conn) ExecuteUpdate(query string) (uint64, error) {
	return c.runUpdate(query, nil)
}

func (c *Conn) runQuery(query string, params []any) (core.ResultSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil, core.ErrConnectionClosed("connection")
	}
	iter := c.session.Query(query, params...).Iter()
	r, err := newRows(c, iter)
	if err != nil {
		return nil, core.WrapError(core.CodeQueryFailed, err, "executing %q", query)
	}
	c.rows[r] = struct{}{}
	return r, nil
}

func (c *Conn) runUpdate(query string, params []any) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return 0, core.ErrConnectionClosed("connection")
	}
	if c.batch != nil {
		c.batch.Query(query, params...)
		return 0, nil
	}
	if err := c.session.Query(query, params...).Exec(); err != nil {
		return 0, core.WrapError(core.CodeUpdateFailed, err, "executing %q", query)
	}
	return 0, nil
}

// SetAutoCommit toggles autocommit; turning it off opens a batch, turning it
// on applies a pending one.
func (c *Conn) SetAutoCommit(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if on {
		c.autoCommit = true
		if c.batch != nil {
			return c.commitLocked()
		}
		return nil
	}
	c.autoCommit = false
	if c.batch == nil {
		c.batch = c.session.NewBatch(gocql.LoggedBatch)
	}
	return nil
}

func (c *Conn) AutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoCommit
}

// BeginTransaction opens a logged batch, applied atomically at Commit.
// Returns false when one is already open.
func (c *Conn) BeginTransaction() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return false, core.ErrConnectionClosed("connection")
	}
	if c.batch != nil {
		return false, nil
	}
	c.batch = c.session.NewBatch(gocql.LoggedBatch)
	return true, nil
}

// Commit applies the accumulated batch.
func (c *Conn) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if c.batch == nil {
		return nil
	}
	if err := c.commitLocked(); err != nil {
		return err
	}
	if !c.autoCommit {
		c.batch = c.session.NewBatch(gocql.LoggedBatch)
	}
	return nil
}

// Rollback discards the accumulated batch.
func (c *Conn) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if c.batch == nil {
		return nil
	}
	if c.autoCommit {
		c.batch = nil
	} else {
		c.batch = c.session.NewBatch(gocql.LoggedBatch)
	}
	return nil
}

func (c *Conn) commitLocked() error {
	batch := c.batch
	c.batch = nil
	if batch.Size() == 0 {
		return nil
	}
	if err := c.session.ExecuteBatch(batch); err != nil {
		return core.WrapError(core.CodeUpdateFailed, err, "applying logged batch of %d statements", batch.Size())
	}
	return nil
}

func (c *Conn) TransactionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batch != nil
}

// SetTransactionIsolation accepts only NONE: Cassandra has no isolation
// levels to map onto.
func (c *Conn) SetTransactionIsolation(level core.IsolationLevel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if level != core.IsolationNone {
		return core.NewError(core.CodeUnsupportedIsolationLevel,
			"cassandra has no transactional isolation; only NONE is accepted, not %s", level)
	}
	return nil
}

// TransactionIsolation always reports NONE.
func (c *Conn) TransactionIsolation() (core.IsolationLevel, error) {
	if c.closed.Load() {
		return core.IsolationNone, core.ErrConnectionClosed("connection")
	}
	return core.IsolationNone, nil
}

// Ping validates the session against the system table.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	var version string
	if err := c.session.Query("SELECT release_version FROM system.local").Scan(&version); err != nil {
		return core.WrapError(core.CodeConnectionClosed, err, "cassandra ping failed")
	}
	return nil
}

func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// Close discards any pending batch, closes live statements and cursors, and
// shuts the session down. Idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return nil
	}
	c.batch = nil
	for r := range c.rows {
		r.closeLocked()
	}
	for s := range c.stmts {
		s.closeLocked()
	}
	c.closed.Store(true)
	c.session.Close()
	return nil
}

// countPlaceholders counts ? markers outside single-quoted literals, the
// CQL quoting rule.
func countPlaceholders(query string) int {
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		switch {
		case query[i] == '\'':
			inQuote = !inQuote
		case query[i] == '?' && !inQuote:
			n++
		}
	}
	return n
}

// Stmt is a prepared CQL statement. gocql prepares server-side on first
// execution and caches by query string; this wrapper owns the bound
// parameter vector and keeps payloads alive until close.
type Stmt struct {
	conn     *Conn
	query    string
	numInput int
	params   []any
	closed   bool // guarded by conn.mu
}

var _ core.PreparedStatement = (*Stmt)(nil)

func newStmt(c *Conn, query string) *Stmt {
	n := countPlaceholders(query)
	return &Stmt{conn: c, query: query, numInput: n, params: make([]any, n)}
}

func (s *Stmt) set(index int, v any) error {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if err := s.checkLive(); err != nil {
		return err
	}
	if index < 1 || index > s.numInput {
		return core.NewError(core.CodeInvalidParameterIndex,
			"parameter index %d out of range 1..%d", index, s.numInput)
	}
	s.params[index-1] = v
	return nil
}

func (s *Stmt) SetString(index int, v string) error   { return s.set(index, v) }
func (s *Stmt) SetInt64(index int, v int64) error     { return s.set(index, v) }
func (s *Stmt) SetFloat64(index int, v float64) error { return s.set(index, v) }
func (s *Stmt) SetBool(index int, v bool) error       { return s.set(index, v) }
func (s *Stmt) SetNull(index int) error               { return s.set(index, nil) }

// SetBytes binds a copy of v.
func (s *Stmt) SetBytes(index int, v []byte) error {
	buf := make([]byte, len(v))
	copy(buf, v)
	return s.set(index, buf)
}

// SetBlob binds the blob's current contents.
func (s *Stmt) SetBlob(index int, b core.Blob) error {
	buf, err := b.GetBytes(0, int(b.Length()))
	if err != nil {
		return err
	}
	return s.set(index, buf)
}

// SetStream drains r and binds the collected bytes; the stream is consumed.
func (s *Stmt) SetStream(index int, r core.InputStream) error {
	buf, err := core.ReadAll(r)
	if err != nil {
		return core.WrapError(core.CodeQueryFailed, err, "reading stream parameter %d", index)
	}
	return s.set(index, buf)
}

// ExecuteQuery runs the statement with the bound parameters.
func (s *Stmt) ExecuteQuery() (core.ResultSet, error) {
	params, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return s.conn.runQuery(s.query, params)
}

// ExecuteUpdate runs (or batches) the statement with the bound parameters.
func (s *Stmt) ExecuteUpdate() (uint64, error) {
	params, err := s.snapshot()
	if err != nil {
		return 0, err
	}
	return s.conn.runUpdate(s.query, params)
}

// snapshot copies the parameter vector so a later rebind does not mutate a
// batched statement.
func (s *Stmt) snapshot() ([]any, error) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if err := s.checkLive(); err != nil {
		return nil, err
	}
	out := make([]any, len(s.params))
	copy(out, s.params)
	return out, nil
}

// checkLive re-validates statement and connection. Caller holds conn.mu.
func (s *Stmt) checkLive() error {
	if s.conn.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if s.closed {
		return core.ErrConnectionClosed("statement")
	}
	return nil
}

// Close releases the statement. Idempotent.
func (s *Stmt) Close() error {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	s.closeLocked()
	return nil
}

func (s *Stmt) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	delete(s.conn.stmts, s)
	s.params = nil
}
