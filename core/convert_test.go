package core

import (
	"testing"
	"time"
)

func TestValueToString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{[]byte("xyz"), "xyz"},
		{int64(42), "42"},
		{3.5, "3.5"},
		{true, "true"},
	}
	for _, c := range cases {
		got, err := ValueToString(c.in)
		if err != nil {
			t.Errorf("ValueToString(%v): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ValueToString(%v) = %q, want %q", c.in, got, c.want)
		}
	}

	ts := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	got, err := ValueToString(ts)
	if err != nil {
		t.Fatalf("ValueToString(time): %v", err)
	}
	if got != "2026-08-27T12:00:00Z" {
		t.Errorf("ValueToString(time) = %q", got)
	}
}

func TestValueToInt64(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{nil, 0},
		{int64(7), 7},
		{int32(7), 7},
		{7.9, 7},
		{true, 1},
		{false, 0},
		{"123", 123},
		{" 123 ", 123},
		{[]byte("99"), 99},
	}
	for _, c := range cases {
		got, err := ValueToInt64(c.in)
		if err != nil {
			t.Errorf("ValueToInt64(%v): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ValueToInt64(%v) = %d, want %d", c.in, got, c.want)
		}
	}

	if _, err := ValueToInt64("not a number"); !IsCode(err, CodeQueryFailed) {
		t.Errorf("Unparseable text should fail with %s, got %v", CodeQueryFailed, err)
	}
}

func TestValueToFloat64(t *testing.T) {
	got, err := ValueToFloat64("2.25")
	if err != nil || got != 2.25 {
		t.Errorf("ValueToFloat64(\"2.25\") = %v, %v", got, err)
	}
	got, err = ValueToFloat64(int64(3))
	if err != nil || got != 3 {
		t.Errorf("ValueToFloat64(3) = %v, %v", got, err)
	}
	if v, err := ValueToFloat64(nil); err != nil || v != 0 {
		t.Errorf("ValueToFloat64(nil) = %v, %v", v, err)
	}
}

func TestValueToBool(t *testing.T) {
	truthy := []any{true, int64(1), "1", "true", "yes", "ON", []byte("t")}
	for _, v := range truthy {
		got, err := ValueToBool(v)
		if err != nil || !got {
			t.Errorf("ValueToBool(%v) = %v, %v, want true", v, got, err)
		}
	}
	falsy := []any{nil, false, int64(0), "0", "false", "no", ""}
	for _, v := range falsy {
		got, err := ValueToBool(v)
		if err != nil || got {
			t.Errorf("ValueToBool(%v) = %v, %v, want false", v, got, err)
		}
	}
	if _, err := ValueToBool("maybe"); !IsCode(err, CodeQueryFailed) {
		t.Errorf("ValueToBool(\"maybe\") should fail, got %v", err)
	}
}

func TestValueToBytesCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	got, err := ValueToBytes(src)
	if err != nil {
		t.Fatalf("ValueToBytes: %v", err)
	}
	src[0] = 9
	if got[0] != 1 {
		t.Error("ValueToBytes aliases the source slice")
	}
	if v, err := ValueToBytes(nil); err != nil || v != nil {
		t.Errorf("ValueToBytes(nil) = %v, %v", v, err)
	}
}
