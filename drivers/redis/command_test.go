package redis

import (
	"reflect"
	"testing"

	"github.com/shrek82/godbc/core"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"GET user:1", []string{"GET", "user:1"}},
		{"SET greeting 'hello world'", []string{"SET", "greeting", "hello world"}},
		{`SET greeting "hello world"`, []string{"SET", "greeting", "hello world"}},
		{"  HGETALL   session:9  ", []string{"HGETALL", "session:9"}},
		{"SET k ''", []string{"SET", "k", ""}},
		{"SET k ?", []string{"SET", "k", "?"}},
		{"", nil},
	}
	for _, c := range cases {
		got, err := splitCommand(c.in)
		if err != nil {
			t.Errorf("splitCommand(%q): %v", c.in, err)
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("splitCommand(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSplitCommandUnterminatedQuote(t *testing.T) {
	_, err := splitCommand("SET greeting 'oops")
	if !core.IsCode(err, core.CodePrepareFailed) {
		t.Errorf("Expected %s, got %v", core.CodePrepareFailed, err)
	}
}

func TestMaterializeShapes(t *testing.T) {
	// nil reply (missing key): zero rows.
	rs := materialize(nil)
	if rs.RowCount() != 0 || rs.ColumnCount() != 1 {
		t.Errorf("nil reply: rows=%d cols=%d", rs.RowCount(), rs.ColumnCount())
	}

	// Scalar reply: one row, column "value".
	rs = materialize("hello")
	if rs.RowCount() != 1 {
		t.Fatalf("scalar reply: rows=%d", rs.RowCount())
	}
	rs.Next()
	if v, _ := rs.GetStringByName("value"); v != "hello" {
		t.Errorf("scalar value = %q", v)
	}

	// Array reply: one row per element.
	rs = materialize([]any{"a", int64(2), nil})
	if rs.RowCount() != 3 {
		t.Fatalf("array reply: rows=%d", rs.RowCount())
	}
	rs.Next()
	rs.Next()
	if v, _ := rs.GetInt64(1); v != 2 {
		t.Errorf("array element 2 = %d", v)
	}
	rs.Next()
	if isNull, _ := rs.IsNull(1); !isNull {
		t.Error("nil array element should be NULL")
	}

	// Map reply (HGETALL): field/value columns.
	rs = materialize(map[string]any{"name": "alice"})
	if rs.ColumnCount() != 2 || rs.RowCount() != 1 {
		t.Fatalf("map reply: rows=%d cols=%d", rs.RowCount(), rs.ColumnCount())
	}
	rs.Next()
	if f, _ := rs.GetStringByName("field"); f != "name" {
		t.Errorf("map field = %q", f)
	}
	if v, _ := rs.GetStringByName("value"); v != "alice" {
		t.Errorf("map value = %q", v)
	}
}

func TestUpdateCount(t *testing.T) {
	cases := []struct {
		in   any
		want uint64
	}{
		{nil, 0},
		{int64(3), 3},
		{int64(-1), 0},
		{"OK", 1},
		{"", 0},
		{true, 1},
		{false, 0},
	}
	for _, c := range cases {
		if got := updateCount(c.in); got != c.want {
			t.Errorf("updateCount(%v) = %d, want %d", c.in, got, c.want)
		}
	}
}

func newTestStmt(t *testing.T, command string) *Stmt {
	t.Helper()
	conn := &Conn{autoCommit: true, stmts: make(map[*Stmt]struct{})}
	tokens, err := splitCommand(command)
	if err != nil {
		t.Fatalf("splitCommand(%q): %v", command, err)
	}
	s := newStmt(conn, command, tokens)
	conn.stmts[s] = struct{}{}
	return s
}

func TestStmtPlaceholderBinding(t *testing.T) {
	s := newTestStmt(t, "SET user:? ?")

	if err := s.SetInt64(1, 42); err != nil {
		t.Fatalf("SetInt64: %v", err)
	}
	if err := s.SetString(2, "alice"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	args, err := s.render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := []any{"SET", int64(42), "alice"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("render = %v, want %v", args, want)
	}
}

func TestStmtParameterIndexRange(t *testing.T) {
	s := newTestStmt(t, "GET ?")

	if err := s.SetString(0, "x"); !core.IsCode(err, core.CodeInvalidParameterIndex) {
		t.Errorf("Index 0: expected %s, got %v", core.CodeInvalidParameterIndex, err)
	}
	if err := s.SetString(2, "x"); !core.IsCode(err, core.CodeInvalidParameterIndex) {
		t.Errorf("Index past last placeholder: expected %s, got %v", core.CodeInvalidParameterIndex, err)
	}
	if err := s.SetString(1, "x"); err != nil {
		t.Errorf("Valid index: %v", err)
	}
}

func TestStmtBlobAndStreamBinding(t *testing.T) {
	s := newTestStmt(t, "SET payload ?")

	blob := core.NewMemoryBlob([]byte{0x01, 0x02, 0x03})
	if err := s.SetBlob(1, blob); err != nil {
		t.Fatalf("SetBlob: %v", err)
	}
	args, _ := s.render()
	if got, ok := args[2].([]byte); !ok || len(got) != 3 {
		t.Errorf("Blob binding = %v", args[2])
	}

	if err := s.SetStream(1, core.NewBytesStream([]byte("streamed"))); err != nil {
		t.Fatalf("SetStream: %v", err)
	}
	args, _ = s.render()
	if got, ok := args[2].([]byte); !ok || string(got) != "streamed" {
		t.Errorf("Stream binding = %v", args[2])
	}
}

func TestStmtClosedRejectsUse(t *testing.T) {
	s := newTestStmt(t, "GET ?")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Second Close: %v", err)
	}
	if err := s.SetString(1, "x"); !core.IsCode(err, core.CodeConnectionClosed) {
		t.Errorf("Bind after close: expected %s, got %v", core.CodeConnectionClosed, err)
	}
	if _, err := s.render(); !core.IsCode(err, core.CodeConnectionClosed) {
		t.Errorf("render after close: expected %s, got %v", core.CodeConnectionClosed, err)
	}
}

func TestSplitCommandPlaceholderInsideQuotes(t *testing.T) {
	// A quoted ? is literal text, not a placeholder.
	s := newTestStmt(t, "SET k '?'")
	if len(s.slots) != 0 {
		t.Errorf("Quoted ? treated as placeholder: slots=%v", s.slots)
	}
}
