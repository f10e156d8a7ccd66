package core

import (
	"testing"
)

func sampleResultSet() *MemoryResultSet {
	return NewMemoryResultSet(
		[]string{"id", "name", "score", "active", "payload"},
		[][]any{
			{int64(1), "alice", 91.5, true, []byte{0x01, 0x02}},
			{int64(2), "bob", 78.0, false, nil},
		},
	)
}

func TestMemoryResultSetIteration(t *testing.T) {
	rs := sampleResultSet()

	if rs.Row() != 0 {
		t.Errorf("Row before Next = %d, want 0", rs.Row())
	}
	if rs.RowCount() != 2 {
		t.Errorf("RowCount = %d, want 2", rs.RowCount())
	}

	var ids []int64
	for rs.Next() {
		id, err := rs.GetInt64(1)
		if err != nil {
			t.Fatalf("GetInt64 at row %d: %v", rs.Row(), err)
		}
		ids = append(ids, id)
	}
	if rs.Err() != nil {
		t.Fatalf("Err after iteration: %v", rs.Err())
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("Iterated ids = %v", ids)
	}
	// Exhausted cursor stays exhausted.
	if rs.Next() {
		t.Error("Next after exhaustion returned true")
	}
}

func TestMemoryResultSetGetters(t *testing.T) {
	rs := sampleResultSet()
	if !rs.Next() {
		t.Fatal("Next failed")
	}

	if name, _ := rs.GetString(2); name != "alice" {
		t.Errorf("GetString(2) = %q", name)
	}
	if score, _ := rs.GetFloat64(3); score != 91.5 {
		t.Errorf("GetFloat64(3) = %v", score)
	}
	if active, _ := rs.GetBool(4); !active {
		t.Error("GetBool(4) = false, want true")
	}
	if raw, _ := rs.GetBytes(5); len(raw) != 2 || raw[0] != 0x01 {
		t.Errorf("GetBytes(5) = %v", raw)
	}

	// By-name access is case-insensitive.
	if name, err := rs.GetStringByName("NAME"); err != nil || name != "alice" {
		t.Errorf("GetStringByName(NAME) = %q, %v", name, err)
	}
	if _, err := rs.GetStringByName("nope"); !IsCode(err, CodeColumnNotFound) {
		t.Errorf("Unknown column should fail with %s, got %v", CodeColumnNotFound, err)
	}

	// Out-of-range index.
	if _, err := rs.GetString(0); !IsCode(err, CodeColumnNotFound) {
		t.Errorf("Index 0 should fail with %s, got %v", CodeColumnNotFound, err)
	}
	if _, err := rs.GetString(6); !IsCode(err, CodeColumnNotFound) {
		t.Errorf("Index past last column should fail with %s, got %v", CodeColumnNotFound, err)
	}
}

func TestMemoryResultSetNulls(t *testing.T) {
	rs := sampleResultSet()
	rs.Next()
	rs.Next() // bob's row, payload is nil

	isNull, err := rs.IsNull(5)
	if err != nil {
		t.Fatalf("IsNull: %v", err)
	}
	if !isNull {
		t.Error("IsNull(5) = false for a nil value")
	}
	// NULL converts to the zero value.
	if raw, err := rs.GetBytes(5); err != nil || raw != nil {
		t.Errorf("GetBytes on NULL = %v, %v", raw, err)
	}
	if s, err := rs.GetString(5); err != nil || s != "" {
		t.Errorf("GetString on NULL = %q, %v", s, err)
	}
}

func TestMemoryResultSetBlobDetached(t *testing.T) {
	rs := sampleResultSet()
	rs.Next()

	blob, err := rs.GetBlob(5)
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if err := rs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// The blob outlives the result set.
	got, err := blob.GetBytes(0, int(blob.Length()))
	if err != nil || len(got) != 2 {
		t.Errorf("Detached blob read after close = %v, %v", got, err)
	}
}

func TestMemoryResultSetNoCurrentRow(t *testing.T) {
	rs := sampleResultSet()
	if _, err := rs.GetString(1); !IsCode(err, CodeQueryFailed) {
		t.Errorf("Getter before Next should fail with %s, got %v", CodeQueryFailed, err)
	}
}

func TestMemoryResultSetCloseIdempotent(t *testing.T) {
	rs := sampleResultSet()
	if err := rs.Close(); err != nil {
		t.Fatalf("First Close: %v", err)
	}
	if err := rs.Close(); err != nil {
		t.Fatalf("Second Close: %v", err)
	}
	if rs.Next() {
		t.Error("Next after Close returned true")
	}
}

func TestMemoryResultSetDuplicateColumns(t *testing.T) {
	rs := NewMemoryResultSet([]string{"v", "V"}, [][]any{{"first", "second"}})
	rs.Next()
	// The first column of a duplicated name wins.
	got, err := rs.GetStringByName("v")
	if err != nil || got != "first" {
		t.Errorf("Duplicate-name lookup = %q, %v", got, err)
	}
}
