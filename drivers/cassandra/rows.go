package cassandra

import (
	"reflect"
	"strings"

	"github.com/gocql/gocql"

	"github.com/shrek82/godbc/core"
)

// Rows is a cursor over a gocql iterator. Scanning pages rows from the
// cluster on demand, so Next and Close run under the connection's mutex;
// getters read the already-extracted row buffer and need no lock.
type Rows struct {
	conn *Conn
	iter *gocql.Iter

	cols     []string
	colIndex map[string]int // lower(name) -> 1-based index

	// scan holds the typed scan targets gocql allocated for one row; buf
	// holds the dereferenced values of the current row.
	scan []any
	buf  []any

	rowNum uint64
	err    error
	done   bool
	closed bool // guarded by conn.mu
}

var _ core.ResultSet = (*Rows)(nil)

func newRows(c *Conn, iter *gocql.Iter) (*Rows, error) {
	rd, err := iter.RowData()
	if err != nil {
		_ = iter.Close()
		return nil, err
	}
	idx := make(map[string]int, len(rd.Columns))
	for i, name := range rd.Columns {
		key := strings.ToLower(name)
		if _, dup := idx[key]; !dup {
			idx[key] = i + 1
		}
	}
	return &Rows{
		conn:     c,
		iter:     iter,
		cols:     rd.Columns,
		colIndex: idx,
		scan:     rd.Values,
		buf:      make([]any, len(rd.Columns)),
	}, nil
}

// Next pages the next row from the cluster, returning false at the end or on
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
	if !r.iter.Scan(r.scan...) {
		r.done = true
		if err := r.iter.Close(); err != nil {
			r.err = core.WrapError(core.CodeQueryFailed, err, "advancing result cursor")
		}
		return false
	}
	// gocql reuses the scan targets; snapshot the row by dereferencing.
	for i, p := range r.scan {
		r.buf[i] = deref(p)
	}
	r.rowNum++
	return true
}

func deref(p any) any {
	rv := reflect.ValueOf(p)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return p
	}
	return rv.Elem().Interface()
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

func (r *Rows) ColumnCount() int {
	return len(r.cols)
}

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

func (r *Rows) value(index int) (any, error) {
	if index < 1 || index > len(r.cols) {
		return nil, core.NewError(core.CodeColumnNotFound, "column index %d out of range 1..%d", index, len(r.cols))
	}
	if r.rowNum == 0 {
		return nil, core.NewError(core.CodeQueryFailed, "no current row; call Next first")
	}
	return r.buf[index-1], nil
}

// IsNull reports whether the column is unset in the current row.
func (r *Rows) IsNull(index int) (bool, error) {
	v, err := r.value(index)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

func (r *Rows) GetString(index int) (string, error) {
	v, err := r.value(index)
	if err != nil {
		return "", err
	}
	return core.ValueToString(v)
}

func (r *Rows) GetInt64(index int) (int64, error) {
	v, err := r.value(index)
	if err != nil {
		return 0, err
	}
	return core.ValueToInt64(v)
}

func (r *Rows) GetFloat64(index int) (float64, error) {
	v, err := r.value(index)
	if err != nil {
		return 0, err
	}
	return core.ValueToFloat64(v)
}

func (r *Rows) GetBool(index int) (bool, error) {
	v, err := r.value(index)
	if err != nil {
		return false, err
	}
	return core.ValueToBool(v)
}

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

// Close finalizes the iterator. Idempotent; also triggered by the owning
// connection's Close.
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
	if !r.done {
		_ = r.iter.Close()
	}
}
