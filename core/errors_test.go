package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := NewError(CodeQueryFailed, "query %q failed", "SELECT 1")
	if err.Code != CodeQueryFailed {
		t.Errorf("Expected code %s, got %s", CodeQueryFailed, err.Code)
	}
	if !strings.Contains(err.Error(), "SELECT 1") {
		t.Errorf("Message lost formatting args: %s", err.Error())
	}
	if !strings.Contains(err.Error(), CodeQueryFailed) {
		t.Errorf("Error string should carry the code: %s", err.Error())
	}
	if err.Stack == "" {
		t.Error("Expected a captured call stack")
	}
	// The stack should point at this test, not at the errors package.
	if !strings.Contains(err.Stack, "errors_test.go") {
		t.Errorf("Stack does not reach the caller:\n%s", err.Stack)
	}
}

func TestErrorWrapping(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := WrapError(CodeConnectionClosed, cause, "dialing %s", "localhost:3306")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should see through to the cause")
	}
	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap returned %v, want the original cause", unwrapped)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Wrapped message should include the cause: %s", err.Error())
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewError(CodePoolExhausted, "no connection within 100ms")
	b := NewError(CodePoolExhausted, "different message")
	c := NewError(CodePoolClosed, "pool closed")

	if !errors.Is(a, b) {
		t.Error("Two errors with the same code should match via errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("Different codes must not match")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", ErrConnectionClosed("statement"))
	if !IsCode(err, CodeConnectionClosed) {
		t.Error("IsCode should find the code through wrapping")
	}
	if IsCode(err, CodeQueryFailed) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(nil, CodeQueryFailed) {
		t.Error("IsCode(nil) must be false")
	}
	if IsCode(fmt.Errorf("plain"), CodeQueryFailed) {
		t.Error("IsCode on a plain error must be false")
	}
}
