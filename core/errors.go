package core

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Error codes used across all drivers and the pool.
const (
	// CodeConnectionClosed is reported when an operation is attempted on a
	// closed connection, statement, or result set.
	CodeConnectionClosed = "CONNECTION_CLOSED"
	// CodeInvalidParameterIndex is reported when a statement parameter is
	// bound outside the 1..N range.
	CodeInvalidParameterIndex = "INVALID_PARAMETER_INDEX"
	// CodeColumnNotFound is reported when a result-set column lookup by name
	// or index fails.
	CodeColumnNotFound = "COLUMN_NOT_FOUND"
	// CodePrepareFailed is reported when the backend rejects a statement at
	// prepare time.
	CodePrepareFailed = "PREPARE_FAILED"
	// CodeQueryFailed is reported when a query execution fails.
	CodeQueryFailed = "QUERY_FAILED"
	// CodeUpdateFailed is reported when an update execution fails.
	CodeUpdateFailed = "UPDATE_FAILED"
	// CodePoolExhausted is reported when no connection becomes available
	// within the pool's connection timeout.
	CodePoolExhausted = "POOL_EXHAUSTED"
	// CodePoolClosed is reported when borrowing from a closed pool.
	CodePoolClosed = "POOL_CLOSED"
	// CodeInvalidConfig is reported when a pool or configuration-file
	// definition fails validation.
	CodeInvalidConfig = "INVALID_CONFIG"
	// CodeNoSuitableDriver is reported when no registered driver accepts a
	// connection URL.
	CodeNoSuitableDriver = "NO_SUITABLE_DRIVER"
	// CodeSerializationConflict is reported when the backend aborts a
	// transaction because of a serialization conflict.
	CodeSerializationConflict = "SERIALIZATION_CONFLICT"
	// CodeUnsupportedIsolationLevel is reported when a driver cannot map the
	// requested isolation level onto its backend.
	CodeUnsupportedIsolationLevel = "UNSUPPORTED_ISOLATION_LEVEL"
)

// Error is the structured error surfaced by every operation in this module.
// It carries a stable code, a human-readable message, and the call stack
// captured where the error was created.
type Error struct {
	Code    string
	Message string
	Stack   string
	cause   error
}

// NewError creates an Error with the given code and formatted message.
func NewError(code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// WrapError creates an Error with the given code and message, keeping cause
// reachable through errors.Unwrap.
func WrapError(code string, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
		cause:   cause,
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches Errors by code, so errors.Is works across wrapping.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// IsCode reports whether err is, or wraps, an Error with the given code.
func IsCode(err error, code string) bool {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Code == code
	}
	return false
}

// ErrConnectionClosed builds the liveness-check failure every statement and
// result set reports once its connection has gone away.
func ErrConnectionClosed(what string) *Error {
	return &Error{
		Code:    CodeConnectionClosed,
		Message: what + " is closed",
		Stack:   captureStack(2),
	}
}

func captureStack(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return ""
	}
	frames := runtime.CallersFrames(pcs[:n])
	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}
