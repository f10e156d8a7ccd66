package core

// Connection is an abstract database session. One Connection is the sole
// owner of its native backend handle; statements and result sets created from
// it hold non-owning references and become unusable once it closes.
//
// A Connection is not safe for concurrent use by multiple goroutines. The
// pool guarantees exclusive ownership between borrow and return; outside the
// pool the caller carries that responsibility.
type Connection interface {
	// PrepareStatement compiles a parameterized statement. Parameters use the
	// backend's positional placeholder style and are bound 1-indexed.
	PrepareStatement(query string) (PreparedStatement, error)

	// ExecuteQuery runs an ad-hoc query and returns its result set.
	ExecuteQuery(query string) (ResultSet, error)

	// ExecuteUpdate runs an ad-hoc statement that returns no rows and reports
	// the number of affected rows.
	ExecuteUpdate(query string) (uint64, error)

	// SetAutoCommit toggles autocommit. Turning autocommit off opens a
	// transaction if none is active; turning it back on while a transaction
	// is active commits that transaction.
	SetAutoCommit(on bool) error

	// AutoCommit reports the current autocommit flag.
	AutoCommit() bool

	// BeginTransaction starts a transaction and returns true. If a
	// transaction is already active it is left untouched and false is
	// returned.
	BeginTransaction() (bool, error)

	// Commit commits the active transaction. With autocommit off, a new
	// transaction begins immediately. Without an active transaction it is a
	// no-op.
	Commit() error

	// Rollback aborts the active transaction. With autocommit off, a new
	// transaction begins immediately. Without an active transaction it is a
	// no-op.
	Rollback() error

	// TransactionActive reports whether a transaction is currently open.
	TransactionActive() bool

	// SetTransactionIsolation requests an isolation level. If a transaction
	// is mid-flight and the backend cannot change the level in place, the
	// transaction is committed and restarted under the new level.
	SetTransactionIsolation(level IsolationLevel) error

	// TransactionIsolation returns the isolation level actually in effect,
	// which may be a documented coalescing of the requested one.
	TransactionIsolation() (IsolationLevel, error)

	// Ping verifies the connection is still usable. The pool uses this (or a
	// configured validation query) to validate connections.
	Ping() error

	// Closed reports whether Close has been called.
	Closed() bool

	// Close releases the native handle. Live statements and result sets are
	// notified and transition to closed rather than dangling. Close is
	// idempotent.
	Close() error
}

// PreparedStatement is a parameterized command bound to a Connection.
// Parameter indices are 1-based; binding out of range fails with
// CodeInvalidParameterIndex. Bound blob, stream, and byte-slice payloads are
// kept referenced by the statement until it closes, so the backend can
// consume them at execution time.
type PreparedStatement interface {
	SetString(index int, v string) error
	SetInt64(index int, v int64) error
	SetFloat64(index int, v float64) error
	SetBool(index int, v bool) error
	SetBytes(index int, v []byte) error
	SetNull(index int) error

	// SetBlob binds the blob's current contents.
	SetBlob(index int, b Blob) error

	// SetStream drains r at bind time; streams are consumed once.
	SetStream(index int, r InputStream) error

	// ExecuteQuery runs the statement with the bound parameters and returns
	// its result set.
	ExecuteQuery() (ResultSet, error)

	// ExecuteUpdate runs the statement and reports affected rows.
	ExecuteUpdate() (uint64, error)

	// Close releases the statement. Idempotent.
	Close() error
}

// ResultSet is a cursor over a query's output. Navigation follows the
// Next/Err idiom: Next advances and reports false at the end or on error,
// Err distinguishes the two. Getters address columns 1-indexed or by name.
//
// Whether a ResultSet is self-contained after execute (store-result model) or
// streams rows from a live server-side cursor (cursor model) is a per-driver
// property; cursor-model result sets serialize against their connection
// internally and remain bound to its lifetime.
type ResultSet interface {
	// Next advances to the next row, returning false when exhausted or on
	// error.
	Next() bool

	// Err returns the error that terminated iteration, if any.
	Err() error

	// Row returns the 1-based number of the current row, 0 before the first
	// Next.
	Row() uint64

	ColumnCount() int
	ColumnNames() []string

	// ColumnIndex resolves a column name (case-insensitive) to its 1-based
	// index, failing with CodeColumnNotFound.
	ColumnIndex(name string) (int, error)

	IsNull(index int) (bool, error)

	GetString(index int) (string, error)
	GetInt64(index int) (int64, error)
	GetFloat64(index int) (float64, error)
	GetBool(index int) (bool, error)
	GetBytes(index int) ([]byte, error)

	// GetBlob returns the column as a detached in-memory blob that survives
	// closing the result set.
	GetBlob(index int) (Blob, error)

	GetStringByName(name string) (string, error)
	GetInt64ByName(name string) (int64, error)
	GetFloat64ByName(name string) (float64, error)
	GetBoolByName(name string) (bool, error)
	GetBytesByName(name string) ([]byte, error)
	GetBlobByName(name string) (Blob, error)

	// Close releases the cursor. Idempotent.
	Close() error
}
