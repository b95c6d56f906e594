// Package bufferpool maintains a pool of reusable scratch buffers.
//
// The decoders in this module frequently need to assemble a synthetic
// header (SocketCAN, FlexRay measurement header, reconstructed Ethernet
// frame) in front of a payload slice before copying the result into a
// PacketRecord. Pool amortizes those short-lived allocations.
package bufferpool

import (
	"sync"
	"sync/atomic"
)

// Pool maintains a pool of buffers. It offers a new buffer when one is
// unavailable, growing pooled buffers to the requested capacity as needed.
type Pool struct {
	base sync.Pool
}

// Get returns a buffer with at least capacity capHint, allocating one if one is
// not available in the pool. The returned buffer is empty (Len() == 0) and
// has a reference count of 1.
//
// The caller should return the buffer to the pool by calling its Release
// method when done with it.
func (p *Pool) Get(capHint int) *Buffer {
	b, ok := p.base.Get().(*Buffer)
	if !ok {
		b = &Buffer{}
	}
	if cap(b.bytes) < capHint {
		b.bytes = make([]byte, 0, capHint)
	}
	b.bytes = b.bytes[:0]
	b.pool = p
	b.refcount = 1
	return b
}

func (p *Pool) releaseNode(b *Buffer) {
	p.base.Put(b)
}

// Buffer is a byte buffer that can be released into a Pool for reuse.
//
// Buffer is reference counted, and can be retained and released
// appropriately. Failure to release a Buffer will not cause a memory leak,
// but will prevent the reuse of its backing array.
type Buffer struct {
	refcount int64

	bytes []byte

	pool *Pool
}

// Bytes returns this buffer's current contents.
func (b *Buffer) Bytes() []byte { return b.bytes }

// Len returns the number of bytes written to the buffer.
func (b *Buffer) Len() int { return len(b.bytes) }

// Write appends p to the buffer, implementing io.Writer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.bytes = append(b.bytes, p...)
	return len(p), nil
}

// WriteByte appends a single byte to the buffer, implementing io.ByteWriter.
func (b *Buffer) WriteByte(c byte) error {
	b.bytes = append(b.bytes, c)
	return nil
}

// Release returns the buffer to its buffer pool.
//
// Release is safe for concurrent use. A Buffer must only be released once
// per Retain (including its initial implicit retain from Get).
func (b *Buffer) Release() {
	if atomic.AddInt64(&b.refcount, -1) != 0 {
		return
	}

	var pool *Pool
	pool, b.pool = b.pool, nil
	pool.releaseNode(b)
}

// Retain increases the Buffer's reference count. It should be accompanied by
// a corresponding Release call.
func (b *Buffer) Retain() { atomic.AddInt64(&b.refcount, 1) }
