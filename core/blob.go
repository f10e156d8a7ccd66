package core

import (
	"io"
)

// InputStream is a one-shot byte stream. It follows the io.Reader contract:
// Read returns the number of bytes read and io.EOF once the stream is
// exhausted. Streams are consumed once and are not restartable unless the
// concrete type documents otherwise.
type InputStream = io.Reader

// Blob is a binary payload supporting partial reads and writes. It may be
// fully detached (in-memory) or backed by an open connection; the
// implementations in this package are detached.
type Blob interface {
	// Length returns the current size in bytes.
	Length() int64

	// GetBytes copies length bytes starting at offset. Reading past the end
	// returns the available prefix; an offset beyond the end returns an empty
	// slice.
	GetBytes(offset int64, length int) ([]byte, error)

	// SetBytes writes data at offset, extending the blob when the write runs
	// past the current end. Bytes outside the written range are untouched.
	SetBytes(offset int64, data []byte) error

	// Stream returns a reader over the blob's current contents.
	Stream() InputStream
}

// MemoryBlob is the detached, in-memory Blob implementation. The zero value
// is an empty blob ready to use. Not safe for concurrent use.
type MemoryBlob struct {
	data []byte
}

// NewMemoryBlob creates a blob holding a copy of data.
func NewMemoryBlob(data []byte) *MemoryBlob {
	b := &MemoryBlob{data: make([]byte, len(data))}
	copy(b.data, data)
	return b
}

// Length returns the current size in bytes.
func (b *MemoryBlob) Length() int64 {
	return int64(len(b.data))
}

// GetBytes copies length bytes starting at offset.
func (b *MemoryBlob) GetBytes(offset int64, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, NewError(CodeQueryFailed, "negative blob offset or length")
	}
	if offset >= int64(len(b.data)) {
		return []byte{}, nil
	}
	end := offset + int64(length)
	if end > int64(len(b.data)) {
		end = int64(len(b.data))
	}
	out := make([]byte, end-offset)
	copy(out, b.data[offset:end])
	return out, nil
}

// SetBytes writes data at offset, growing the blob as needed. A gap between
// the old end and offset is zero-filled.
func (b *MemoryBlob) SetBytes(offset int64, data []byte) error {
	if offset < 0 {
		return NewError(CodeUpdateFailed, "negative blob offset")
	}
	end := offset + int64(len(data))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[offset:end], data)
	return nil
}

// Stream returns a reader over a snapshot of the blob's contents.
func (b *MemoryBlob) Stream() InputStream {
	snap := make([]byte, len(b.data))
	copy(snap, b.data)
	return &bytesStream{data: snap}
}

// Bytes returns a copy of the full payload.
func (b *MemoryBlob) Bytes() []byte {
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// bytesStream is the InputStream over a byte slice.
type bytesStream struct {
	data []byte
	pos  int
}

func (s *bytesStream) Read(p []byte) (int, error) {
	if s.pos >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += n
	return n, nil
}

// NewBytesStream creates an InputStream over a copy of data.
func NewBytesStream(data []byte) InputStream {
	snap := make([]byte, len(data))
	copy(snap, data)
	return &bytesStream{data: snap}
}

// ReadAll drains an InputStream into memory. Bind-time helper for drivers
// that need the whole payload before handing it to the native client.
func ReadAll(r InputStream) ([]byte, error) {
	return io.ReadAll(r)
}
