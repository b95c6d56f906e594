// Package bytesreader offers R, a slice-backed reader that offers zero-copy
// options.
//
// Standard io.Reader methods require that data be copied into a target
// buffer. The zero-copy options, Peek and Next, allow data to be returned as
// slices of R's underlying Buffer.
//
// With great power comes great responsibility: holding a reference to an
// underlying Buffer means that the Buffer must persist as long as that
// reference is valid, and that modifications to that reference must be
// coordinated with any other consumers. The decoder layer above this package
// copies payload bytes out before handing a PacketRecord to its caller, so
// callers outside this module never see the backing Buffer directly.
//
// R allows for APIs that may want to be zero-copy conditionally by exposing
// an AlwaysCopy flag. If set, R's zero-copy operations will return copies of
// the underlying Buffer, decoupling them from their base state.
package bytesreader

import (
	"io"

	"github.com/pkg/errors"
)

// R is an io.Reader-inspired type that exposes operations that return byte
// slices, instead of filling a caller-supplied byte slice.
//
// This allows for efficient zero-copy read operations by returning sections
// of a backing array. This is more efficient than copying the data, but
// carries the peril that, for non-copying calls, the returned data is not
// independent of the reader's Buffer.
//
// R can act like an io.Reader, io.ByteReader, and io.Seeker, allowing it to
// interface with other APIs (such as struc) at the expense of introducing
// data copying in those paths.
//
// R can be copied, creating a snapshot of its current state.
type R struct {
	// Buffer is the backing buffer for this reader.
	Buffer []byte

	// AlwaysCopy, if true, causes zero-copy methods to return copies of their
	// backing data instead of direct references.
	AlwaysCopy bool

	// pos is R's position within Buffer.
	pos int64
}

var _ interface {
	io.Reader
	io.ByteReader
	io.Seeker
} = (*R)(nil)

// New returns an R backed directly by buf (no copy).
func New(buf []byte) *R { return &R{Buffer: buf} }

func (r *R) remainingSlice() []byte {
	if r.pos >= int64(len(r.Buffer)) {
		return nil
	}
	return r.Buffer[r.pos:]
}

// Remaining returns the number of bytes remaining in the reader, from the
// current position.
func (r *R) Remaining() int { return len(r.remainingSlice()) }

// Pos returns R's current position within Buffer.
func (r *R) Pos() int64 { return r.pos }

// Read implements io.Reader.
//
// Note that using Read causes data to be copied.
func (r *R) Read(b []byte) (amt int, err error) {
	remaining := r.remainingSlice()
	amt = copy(b, remaining)

	r.pos += int64(amt)
	if r.pos >= int64(len(r.Buffer)) {
		err = io.EOF
	}
	return
}

// ReadByte implements io.ByteReader.
func (r *R) ReadByte() (b byte, err error) {
	if r.pos >= int64(len(r.Buffer)) {
		return 0, io.EOF
	}

	b, r.pos = r.Buffer[r.pos], r.pos+1
	return
}

// Seek implements io.Seeker.
func (r *R) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekEnd:
		newPos = offset + int64(len(r.Buffer)) - 1
		if offset > 0 {
			// Seeking to any positive offset is legal.
			if len(r.Buffer) == 0 {
				r.pos = offset
			} else {
				r.pos = newPos
			}
			return r.pos, nil
		}
	case io.SeekCurrent:
		newPos = r.pos + offset
	}

	if newPos < 0 || newPos >= int64(len(r.Buffer)) {
		return r.pos, errors.New("seek outside of bounds")
	}

	r.pos = newPos
	return r.pos, nil
}

// Peek returns the next n bytes in r without advancing it.
//
// Peek is a zero-copy method, and returns a slice of the underlying Buffer
// unless AlwaysCopy is true.
//
// If there are fewer than n bytes in r, Peek returns as many as possible.
func (r *R) Peek(n int) []byte {
	v := r.remainingSlice()
	if n < len(v) {
		v = v[:n]
	}

	if r.AlwaysCopy {
		v = append([]byte(nil), v...)
	}
	return v
}

// PeekByte is like Peek, but it returns a single byte.
func (r *R) PeekByte() (byte, error) {
	remaining := r.remainingSlice()
	if len(remaining) > 0 {
		return remaining[0], nil
	}
	return 0, io.EOF
}

// Next returns the next n bytes in r, advancing r.
//
// Next is a zero-copy equivalent to Read, and returns a slice of the
// underlying Buffer unless AlwaysCopy is true.
//
// If there are n or fewer bytes in r, Next returns as many bytes as it can
// and io.EOF as the error: a read that reaches the end of Buffer reports
// io.EOF even when all requested bytes were returned.
func (r *R) Next(n int) (v []byte, err error) {
	v = r.remainingSlice()
	if n < len(v) {
		v = v[:n]
	} else {
		err = io.EOF
	}

	if r.AlwaysCopy {
		v = append([]byte(nil), v...)
	}

	r.pos += int64(len(v))
	return
}

// NextFull is like Next, but it is an all-or-nothing read: if fewer than n
// bytes remain, it returns io.ErrUnexpectedEOF and leaves r's position
// unchanged.
func (r *R) NextFull(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, io.ErrUnexpectedEOF
	}
	v, _ := r.Next(n)
	return v, nil
}
