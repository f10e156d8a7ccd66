package core

import (
	"bytes"
	"io"
	"testing"
)

func TestMemoryBlobRoundTrip(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xFF, 0x7F, 0x80, 0x00, 0x42}
	b := NewMemoryBlob(payload)

	if b.Length() != int64(len(payload)) {
		t.Fatalf("Length = %d, want %d", b.Length(), len(payload))
	}
	got, err := b.GetBytes(0, len(payload))
	if err != nil {
		t.Fatalf("GetBytes failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Round trip lost bytes: %v != %v", got, payload)
	}

	// The blob owns a copy: mutating the source must not leak in.
	payload[0] = 0xAA
	got, _ = b.GetBytes(0, 1)
	if got[0] != 0x00 {
		t.Error("Blob aliases the caller's slice instead of copying")
	}
}

func TestMemoryBlobPartialReads(t *testing.T) {
	b := NewMemoryBlob([]byte("hello world"))

	// Mid-range read.
	got, err := b.GetBytes(6, 5)
	if err != nil {
		t.Fatalf("GetBytes(6,5) failed: %v", err)
	}
	if string(got) != "world" {
		t.Errorf("GetBytes(6,5) = %q, want %q", got, "world")
	}

	// Length clamped at the end of the blob.
	got, err = b.GetBytes(6, 100)
	if err != nil {
		t.Fatalf("Clamped read failed: %v", err)
	}
	if string(got) != "world" {
		t.Errorf("Clamped read = %q, want %q", got, "world")
	}

	// Reading at or past the end yields nothing.
	got, err = b.GetBytes(11, 4)
	if err != nil {
		t.Fatalf("Read at end failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Read at end returned %d bytes", len(got))
	}
}

func TestMemoryBlobSetBytes(t *testing.T) {
	b := NewMemoryBlob([]byte("abcdef"))

	// Overwrite in place.
	if err := b.SetBytes(1, []byte("XY")); err != nil {
		t.Fatalf("SetBytes overwrite failed: %v", err)
	}
	got, _ := b.GetBytes(0, int(b.Length()))
	if string(got) != "aXYdef" {
		t.Errorf("After overwrite: %q", got)
	}

	// Write past the end extends the blob.
	if err := b.SetBytes(8, []byte("ZZ")); err != nil {
		t.Fatalf("Extending SetBytes failed: %v", err)
	}
	if b.Length() != 10 {
		t.Fatalf("Length after extension = %d, want 10", b.Length())
	}
	got, _ = b.GetBytes(0, 10)
	// The gap between the old end and the write offset is zero-filled.
	want := []byte{'a', 'X', 'Y', 'd', 'e', 'f', 0, 0, 'Z', 'Z'}
	if !bytes.Equal(got, want) {
		t.Errorf("After extension: %v, want %v", got, want)
	}
}

func TestMemoryBlobStream(t *testing.T) {
	b := NewMemoryBlob([]byte("stream me"))
	r := b.Stream()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Reading stream failed: %v", err)
	}
	if string(got) != "stream me" {
		t.Errorf("Stream content = %q", got)
	}

	// The stream is a snapshot: later writes don't show up in it.
	r2 := b.Stream()
	if err := b.SetBytes(0, []byte("XXXXXX")); err != nil {
		t.Fatalf("SetBytes failed: %v", err)
	}
	got, _ = io.ReadAll(r2)
	if string(got) != "stream me" {
		t.Errorf("Snapshot stream saw later writes: %q", got)
	}
}

func TestBytesStreamEOF(t *testing.T) {
	r := NewBytesStream([]byte("ab"))
	buf := make([]byte, 1)

	for i := 0; i < 2; i++ {
		n, err := r.Read(buf)
		if n != 1 || err != nil {
			t.Fatalf("Read %d: n=%d err=%v", i, n, err)
		}
	}
	if _, err := r.Read(buf); err != io.EOF {
		t.Errorf("Expected io.EOF at end of stream, got %v", err)
	}
}

func TestReadAll(t *testing.T) {
	got, err := ReadAll(NewBytesStream([]byte("payload")))
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("ReadAll = %q", got)
	}
}
