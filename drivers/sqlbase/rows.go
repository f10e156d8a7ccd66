package sqlbase

import (
	"io"
	"strings"

	sqldriver "database/sql/driver"

	"github.com/shrek82/godbc/core"
)

// Rows is a cursor over a live vendor result. Row advancement and cursor
// finalization are native calls on the shared connection handle, so they run
// under the connection's mutex. Getters only convert the already-extracted
// row buffer and need no lock; a Rows is single-goroutine like everything
// else hanging off a connection.
type Rows struct {
	conn *Conn
	dr   sqldriver.Rows
	// ownStmt is the internally prepared statement backing an ad-hoc query,
	// finalized together with the cursor.
	ownStmt sqldriver.Stmt

	cols     []string
	colIndex map[string]int // lower(name) -> 1-based index

	buf    []sqldriver.Value
	rowNum uint64
	err    error
	done   bool
	closed bool // guarded by conn.mu
}

var _ core.ResultSet = (*Rows)(nil)

func newRows(c *Conn, dr sqldriver.Rows, ownStmt sqldriver.Stmt) *Rows {
	cols := dr.Columns()
	idx := make(map[string]int, len(cols))
	for i, name := range cols {
		key := strings.ToLower(name)
		if _, dup := idx[key]; !dup {
			idx[key] = i + 1
		}
	}
	return &Rows{
		conn:     c,
		dr:       dr,
		ownStmt:  ownStmt,
		cols:     cols,
		colIndex: idx,
		buf:      make([]sqldriver.Value, len(cols)),
	}
}

// Next advances the native cursor one row, returning false at the end or on
// error (distinguished by Err).
func (r *Rows) Next() bool {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()
	if r.closed || r.done || r.err != nil {
		return false
	}
	if r.conn.closed.Load() {
		r.err = core.ErrConnectionClosed("connection")
		return false
	}
	if err := r.dr.Next(r.buf); err != nil {
		if err == io.EOF {
			r.done = true
		} else {
			r.err = core.WrapError(core.CodeQueryFailed, err, "advancing result cursor")
		}
		return false
	}
	r.rowNum++
	return true
}

// Err returns the error that terminated iteration, if any.
func (r *Rows) Err() error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()
	return r.err
}

// Row returns the 1-based number of the current row.
func (r *Rows) Row() uint64 {
	return r.rowNum
}

// ColumnCount returns the number of columns.
func (r *Rows) ColumnCount() int {
	return len(r.cols)
}

// ColumnNames returns the column names in result order.
func (r *Rows) ColumnNames() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// ColumnIndex resolves a name (case-insensitive) to a 1-based index.
func (r *Rows) ColumnIndex(name string) (int, error) {
	if i, ok := r.colIndex[strings.ToLower(name)]; ok {
		return i, nil
	}
	return 0, core.NewError(core.CodeColumnNotFound, "no column named %q", name)
}

// value fetches the current row's column, validating the 1-based index and
// that a row is positioned.
func (r *Rows) value(index int) (sqldriver.Value, error) {
	if index < 1 || index > len(r.cols) {
		return nil, core.NewError(core.CodeColumnNotFound, "column index %d out of range 1..%d", index, len(r.cols))
	}
	if r.rowNum == 0 {
		return nil, core.NewError(core.CodeQueryFailed, "no current row; call Next first")
	}
	return r.buf[index-1], nil
}

// IsNull reports whether the column is SQL NULL in the current row.
func (r *Rows) IsNull(index int) (bool, error) {
	v, err := r.value(index)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

// GetString converts the column to a string; NULL yields "".
func (r *Rows) GetString(index int) (string, error) {
	v, err := r.value(index)
	if err != nil {
		return "", err
	}
	return core.ValueToString(v)
}

// GetInt64 converts the column to an int64; NULL yields 0.
func (r *Rows) GetInt64(index int) (int64, error) {
	v, err := r.value(index)
	if err != nil {
		return 0, err
	}
	return core.ValueToInt64(v)
}

// GetFloat64 converts the column to a float64; NULL yields 0.
func (r *Rows) GetFloat64(index int) (float64, error) {
	v, err := r.value(index)
	if err != nil {
		return 0, err
	}
	return core.ValueToFloat64(v)
}

// GetBool converts the column to a bool; NULL yields false.
func (r *Rows) GetBool(index int) (bool, error) {
	v, err := r.value(index)
	if err != nil {
		return false, err
	}
	return core.ValueToBool(v)
}

// GetBytes returns a copy of the column's raw bytes; NULL yields nil.
func (r *Rows) GetBytes(index int) ([]byte, error) {
	v, err := r.value(index)
	if err != nil {
		return nil, err
	}
	return core.ValueToBytes(v)
}

// GetBlob returns the column as a detached in-memory blob that survives this
// result set's close.
func (r *Rows) GetBlob(index int) (core.Blob, error) {
	raw, err := r.GetBytes(index)
	if err != nil {
		return nil, err
	}
	return core.NewMemoryBlob(raw), nil
}

func (r *Rows) GetStringByName(name string) (string, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return "", err
	}
	return r.GetString(i)
}

func (r *Rows) GetInt64ByName(name string) (int64, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return 0, err
	}
	return r.GetInt64(i)
}

func (r *Rows) GetFloat64ByName(name string) (float64, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return 0, err
	}
	return r.GetFloat64(i)
}

func (r *Rows) GetBoolByName(name string) (bool, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return false, err
	}
	return r.GetBool(i)
}

func (r *Rows) GetBytesByName(name string) ([]byte, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return r.GetBytes(i)
}

func (r *Rows) GetBlobByName(name string) (core.Blob, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return r.GetBlob(i)
}

// Close finalizes the native cursor (and the internal statement backing an
// ad-hoc query). Idempotent; also triggered by the owning connection's Close.
func (r *Rows) Close() error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()
	r.closeLocked()
	return nil
}

// closeLocked is the teardown shared with Conn.Close. Caller holds conn.mu.
func (r *Rows) closeLocked() {
	if r.closed {
		return
	}
	r.closed = true
	delete(r.conn.rows, r)
	_ = r.dr.Close()
	if r.ownStmt != nil {
		_ = r.ownStmt.Close()
	}
}
