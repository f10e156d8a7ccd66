package redis

import (
	"strings"

	"github.com/shrek82/godbc/core"
)

// splitCommand tokenizes a command string, honoring single and double quotes
// so values with spaces survive ("SET greeting 'hello world'").
func splitCommand(command string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	var quote byte
	inToken := false
	for i := 0; i < len(command); i++ {
		ch := command[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			} else {
				cur.WriteByte(ch)
			}
		case ch == '\'' || ch == '"':
			quote = ch
			inToken = true
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			if inToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inToken = false
			}
		default:
			cur.WriteByte(ch)
			inToken = true
		}
	}
	if quote != 0 {
		return nil, core.NewError(core.CodePrepareFailed, "unterminated quote in redis command %q", command)
	}
	if inToken {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

func anyTokens(tokens []string) []any {
	out := make([]any, len(tokens))
	for i, t := range tokens {
		out[i] = t
	}
	return out
}

// materialize shapes a Redis reply into a store-result set:
//
//	nil             -> zero rows
//	scalar          -> one row, column "value"
//	array           -> one row per element, column "value"
//	map (HGETALL)   -> one row per pair, columns "field", "value"
func materialize(reply any) *core.MemoryResultSet {
	switch t := reply.(type) {
	case nil:
		return core.NewMemoryResultSet([]string{"value"}, nil)
	case []any:
		rows := make([][]any, len(t))
		for i, v := range t {
			rows[i] = []any{normalizeValue(v)}
		}
		return core.NewMemoryResultSet([]string{"value"}, rows)
	case map[string]any:
		rows := make([][]any, 0, len(t))
		for field, v := range t {
			rows = append(rows, []any{field, normalizeValue(v)})
		}
		return core.NewMemoryResultSet([]string{"field", "value"}, rows)
	case map[any]any:
		rows := make([][]any, 0, len(t))
		for field, v := range t {
			rows = append(rows, []any{normalizeValue(field), normalizeValue(v)})
		}
		return core.NewMemoryResultSet([]string{"field", "value"}, rows)
	default:
		return core.NewMemoryResultSet([]string{"value"}, [][]any{{normalizeValue(t)}})
	}
}

// normalizeValue maps go-redis reply types onto the result-set value set.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil, string, []byte, int64, float64, bool:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	default:
		return t
	}
}

// updateCount derives an affected-row count from a write reply: integer
// replies count themselves, simple-string acknowledgements ("OK") count one.
func updateCount(reply any) uint64 {
	switch t := reply.(type) {
	case nil:
		return 0
	case int64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case string:
		if t == "" {
			return 0
		}
		return 1
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 1
	}
}

// Stmt is a prepared Redis command: a token template whose ? tokens are
// replaced by bound parameters, 1-indexed left to right. Bound payloads stay
// referenced until the statement closes.
type Stmt struct {
	conn    *Conn
	command string
	tokens  []string
	// slots maps parameter index (0-based) to its token position.
	slots  []int
	params []any
	closed bool // guarded by conn.mu
}

var _ core.PreparedStatement = (*Stmt)(nil)

func newStmt(c *Conn, command string, tokens []string) *Stmt {
	var slots []int
	for i, tok := range tokens {
		if tok == "?" {
			slots = append(slots, i)
		}
	}
	return &Stmt{
		conn:    c,
		command: command,
		tokens:  tokens,
		slots:   slots,
		params:  make([]any, len(slots)),
	}
}

func (s *Stmt) set(index int, v any) error {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if err := s.checkLive(); err != nil {
		return err
	}
	if index < 1 || index > len(s.slots) {
		return core.NewError(core.CodeInvalidParameterIndex,
			"parameter index %d out of range 1..%d", index, len(s.slots))
	}
	s.params[index-1] = v
	return nil
}

func (s *Stmt) SetString(index int, v string) error   { return s.set(index, v) }
func (s *Stmt) SetInt64(index int, v int64) error     { return s.set(index, v) }
func (s *Stmt) SetFloat64(index int, v float64) error { return s.set(index, v) }
func (s *Stmt) SetBool(index int, v bool) error       { return s.set(index, v) }
func (s *Stmt) SetNull(index int) error               { return s.set(index, "") }

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

// ExecuteQuery runs the substituted command and materializes the reply.
func (s *Stmt) ExecuteQuery() (core.ResultSet, error) {
	args, err := s.render()
	if err != nil {
		return nil, err
	}
	return s.conn.runQuery(args)
}

// ExecuteUpdate runs (or, inside a transaction, queues) the substituted
// command.
func (s *Stmt) ExecuteUpdate() (uint64, error) {
	args, err := s.render()
	if err != nil {
		return 0, err
	}
	return s.conn.runUpdate(args)
}

// render assembles the argument vector with parameters substituted.
func (s *Stmt) render() ([]any, error) {
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if err := s.checkLive(); err != nil {
		return nil, err
	}
	args := make([]any, len(s.tokens))
	for i, tok := range s.tokens {
		args[i] = tok
	}
	for pi, pos := range s.slots {
		args[pos] = s.params[pi]
	}
	return args, nil
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
