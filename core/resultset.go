package core

import (
	"strings"
)

// MemoryResultSet is the store-result ResultSet building block for backends
// whose native client fully materializes a reply at execute time. It is
// self-contained after construction: no native handle, no shared mutex with
// the connection, and it stays readable after the connection closes.
type MemoryResultSet struct {
	cols     []string
	colIndex map[string]int
	rows     [][]any
	pos      int // 0 before first Next, then 1-based row number
	closed   bool
}

var _ ResultSet = (*MemoryResultSet)(nil)

// NewMemoryResultSet builds a materialized result set. Row values may be
// nil, string, []byte, int64, float64, bool, or time.Time.
func NewMemoryResultSet(cols []string, rows [][]any) *MemoryResultSet {
	idx := make(map[string]int, len(cols))
	for i, name := range cols {
		key := strings.ToLower(name)
		if _, dup := idx[key]; !dup {
			idx[key] = i + 1
		}
	}
	return &MemoryResultSet{cols: cols, colIndex: idx, rows: rows}
}

// Next advances to the next materialized row.
func (r *MemoryResultSet) Next() bool {
	if r.closed || r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

// Err always returns nil: iteration over materialized rows cannot fail.
func (r *MemoryResultSet) Err() error {
	return nil
}

// Row returns the 1-based number of the current row.
func (r *MemoryResultSet) Row() uint64 {
	return uint64(r.pos)
}

// RowCount returns the total number of materialized rows.
func (r *MemoryResultSet) RowCount() int {
	return len(r.rows)
}

func (r *MemoryResultSet) ColumnCount() int {
	return len(r.cols)
}

func (r *MemoryResultSet) ColumnNames() []string {
	out := make([]string, len(r.cols))
	copy(out, r.cols)
	return out
}

// ColumnIndex resolves a name (case-insensitive) to a 1-based index.
func (r *MemoryResultSet) ColumnIndex(name string) (int, error) {
	if i, ok := r.colIndex[strings.ToLower(name)]; ok {
		return i, nil
	}
	return 0, NewError(CodeColumnNotFound, "no column named %q", name)
}

func (r *MemoryResultSet) value(index int) (any, error) {
	if index < 1 || index > len(r.cols) {
		return nil, NewError(CodeColumnNotFound, "column index %d out of range 1..%d", index, len(r.cols))
	}
	if r.pos == 0 || r.pos > len(r.rows) {
		return nil, NewError(CodeQueryFailed, "no current row; call Next first")
	}
	return r.rows[r.pos-1][index-1], nil
}

func (r *MemoryResultSet) IsNull(index int) (bool, error) {
	v, err := r.value(index)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

func (r *MemoryResultSet) GetString(index int) (string, error) {
	v, err := r.value(index)
	if err != nil {
		return "", err
	}
	return ValueToString(v)
}

func (r *MemoryResultSet) GetInt64(index int) (int64, error) {
	v, err := r.value(index)
	if err != nil {
		return 0, err
	}
	return ValueToInt64(v)
}

func (r *MemoryResultSet) GetFloat64(index int) (float64, error) {
	v, err := r.value(index)
	if err != nil {
		return 0, err
	}
	return ValueToFloat64(v)
}

func (r *MemoryResultSet) GetBool(index int) (bool, error) {
	v, err := r.value(index)
	if err != nil {
		return false, err
	}
	return ValueToBool(v)
}

func (r *MemoryResultSet) GetBytes(index int) ([]byte, error) {
	v, err := r.value(index)
	if err != nil {
		return nil, err
	}
	return ValueToBytes(v)
}

// GetBlob returns the column as a detached in-memory blob.
func (r *MemoryResultSet) GetBlob(index int) (Blob, error) {
	raw, err := r.GetBytes(index)
	if err != nil {
		return nil, err
	}
	return NewMemoryBlob(raw), nil
}

func (r *MemoryResultSet) GetStringByName(name string) (string, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return "", err
	}
	return r.GetString(i)
}

func (r *MemoryResultSet) GetInt64ByName(name string) (int64, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return 0, err
	}
	return r.GetInt64(i)
}

func (r *MemoryResultSet) GetFloat64ByName(name string) (float64, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return 0, err
	}
	return r.GetFloat64(i)
}

func (r *MemoryResultSet) GetBoolByName(name string) (bool, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return false, err
	}
	return r.GetBool(i)
}

func (r *MemoryResultSet) GetBytesByName(name string) ([]byte, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return r.GetBytes(i)
}

func (r *MemoryResultSet) GetBlobByName(name string) (Blob, error) {
	i, err := r.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return r.GetBlob(i)
}

// Close marks the result set exhausted. Idempotent; nothing to release.
func (r *MemoryResultSet) Close() error {
	r.closed = true
	return nil
}
