package sqlbase

import (
	"context"
	"time"

	sqldriver "database/sql/driver"

	"github.com/shrek82/godbc/core"
)

// Stmt is a prepared statement over a native vendor statement. It holds a
// non-owning reference to its Conn and borrows the connection's mutex for
// every native call, re-checking liveness each time. Bound byte payloads are
// copied at bind time and stay referenced until the statement closes, so the
// vendor driver can consume them during execution.
type Stmt struct {
	conn  *Conn
	ds    sqldriver.Stmt
	query string

	// numInput is the parameter count reported by the vendor, or -1 when the
	// vendor cannot tell; -1 allows the parameter vector to grow on demand.
	numInput int
	params   []sqldriver.Value

	closed bool // guarded by conn.mu
}

var _ core.PreparedStatement = (*Stmt)(nil)

func newStmt(c *Conn, ds sqldriver.Stmt, query string) *Stmt {
	n := ds.NumInput()
	s := &Stmt{conn: c, ds: ds, query: query, numInput: n}
	if n > 0 {
		s.params = make([]sqldriver.Value, n)
	}
	return s
}

// set validates the 1-based index and stores the native value.
func (s *Stmt) set(index int, v sqldriver.Value) error {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if err := s.checkLive(); err != nil {
		return err
	}
	if index < 1 || (s.numInput >= 0 && index > s.numInput) {
		return core.NewError(core.CodeInvalidParameterIndex,
			"parameter index %d out of range 1..%d", index, s.numInput)
	}
	for len(s.params) < index {
		s.params = append(s.params, nil)
	}
	s.params[index-1] = v
	return nil
}

func (s *Stmt) SetString(index int, v string) error {
	return s.set(index, v)
}

func (s *Stmt) SetInt64(index int, v int64) error {
	return s.set(index, v)
}

func (s *Stmt) SetFloat64(index int, v float64) error {
	return s.set(index, v)
}

func (s *Stmt) SetBool(index int, v bool) error {
	return s.set(index, v)
}

func (s *Stmt) SetNull(index int) error {
	return s.set(index, nil)
}

// SetBytes binds a copy of v, so the caller may reuse its buffer.
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

// SetTime binds a timestamp value.
func (s *Stmt) SetTime(index int, v time.Time) error {
	return s.set(index, v)
}

// ExecuteQuery runs the statement and returns a cursor over its rows.
func (s *Stmt) ExecuteQuery() (core.ResultSet, error) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if err := s.checkLive(); err != nil {
		return nil, err
	}
	dr, err := stmtQuery(s.ds, s.namedParams())
	if err != nil {
		return nil, s.conn.execError(core.CodeQueryFailed, err, s.query)
	}
	r := newRows(s.conn, dr, nil)
	s.conn.rows[r] = struct{}{}
	return r, nil
}

// ExecuteUpdate runs the statement and reports affected rows.
func (s *Stmt) ExecuteUpdate() (uint64, error) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if err := s.checkLive(); err != nil {
		return 0, err
	}
	res, err := stmtExec(s.ds, s.namedParams())
	if err != nil {
		return 0, s.conn.execError(core.CodeUpdateFailed, err, s.query)
	}
	return affected(res), nil
}

// Close finalizes the native statement. Idempotent; also triggered by the
// owning connection's Close.
func (s *Stmt) Close() error {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	s.closeLocked()
	return nil
}

// checkLive re-validates both the statement and its connection before any
// native call. Caller holds conn.mu.
func (s *Stmt) checkLive() error {
	if s.conn.closed.Load() {
		return core.ErrConnectionClosed("connection")
	}
	if s.closed {
		return core.ErrConnectionClosed("statement")
	}
	return nil
}

// closeLocked is the teardown shared with Conn.Close. Caller holds conn.mu.
func (s *Stmt) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	delete(s.conn.stmts, s)
	_ = s.ds.Close()
	s.params = nil
}

func (s *Stmt) namedParams() []sqldriver.NamedValue {
	out := make([]sqldriver.NamedValue, len(s.params))
	for i, v := range s.params {
		out[i] = sqldriver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return out
}

// stmtQuery dispatches through StmtQueryContext when available.
func stmtQuery(ds sqldriver.Stmt, args []sqldriver.NamedValue) (sqldriver.Rows, error) {
	if q, ok := ds.(sqldriver.StmtQueryContext); ok {
		return q.QueryContext(context.Background(), args)
	}
	return ds.Query(plainValues(args))
}

// stmtExec dispatches through StmtExecContext when available.
func stmtExec(ds sqldriver.Stmt, args []sqldriver.NamedValue) (sqldriver.Result, error) {
	if e, ok := ds.(sqldriver.StmtExecContext); ok {
		return e.ExecContext(context.Background(), args)
	}
	return ds.Exec(plainValues(args))
}

func plainValues(args []sqldriver.NamedValue) []sqldriver.Value {
	out := make([]sqldriver.Value, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}
