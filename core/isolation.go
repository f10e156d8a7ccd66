package core

// IsolationLevel is the concurrency-anomaly guarantee a transaction requests
// from the backend. Drivers map each level to the nearest native equivalent
// and report back the level that is actually in effect, which may differ from
// the requested one (see each driver's documentation).
type IsolationLevel int

const (
	// IsolationNone means the backend has no transactional isolation at all.
	IsolationNone IsolationLevel = iota
	IsolationReadUncommitted
	IsolationReadCommitted
	IsolationRepeatableRead
	IsolationSerializable
)

// String returns the conventional SQL spelling of the level.
func (l IsolationLevel) String() string {
	switch l {
	case IsolationNone:
		return "NONE"
	case IsolationReadUncommitted:
		return "READ UNCOMMITTED"
	case IsolationReadCommitted:
		return "READ COMMITTED"
	case IsolationRepeatableRead:
		return "REPEATABLE READ"
	case IsolationSerializable:
		return "SERIALIZABLE"
	}
	return "UNKNOWN"
}
