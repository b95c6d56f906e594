package blf

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/golang/snappy"
)

// containerCache owns the decompressed payload of every zlib container that
// has been touched, plus the lifecycle of an optional memory budget.
//
// Without a budget every accessed container stays resident for the life of
// the session (the spec's default: no eviction). With a budget set, the
// least-recently-used already-inflated container is re-compressed with
// snappy instead of being dropped outright, trading a small amount of CPU
// on the next access for bounded resident memory; emitted records are
// always copies, so demoting a container never invalidates bytes a caller
// is holding.
type containerCache struct {
	src      io.ReaderAt
	idx      *containerIndex
	budget   int64 // 0 means unbounded
	resident int64
	clock    int64

	metrics *Metrics
}

func newContainerCache(src io.ReaderAt, idx *containerIndex, budget int64, metrics *Metrics) *containerCache {
	return &containerCache{src: src, idx: idx, budget: budget, metrics: metrics}
}

// bytes returns the fully-inflated payload of d, inflating (or re-inflating
// from its snappy-demoted form) on first access and caching the result
// according to c's budget policy.
func (c *containerCache) bytes(d *containerDescriptor) ([]byte, error) {
	c.clock++
	d.lastAccess = c.clock

	if d.cached != nil {
		c.metrics.cacheHit()
		return d.cached, nil
	}

	if d.snappyCompressed != nil {
		raw, err := snappy.Decode(nil, d.snappyCompressed)
		if err != nil {
			return nil, newError(Internal, "decoding snappy-demoted container", err)
		}
		d.snappyCompressed = nil
		c.admit(d, raw)
		c.metrics.cacheMiss()
		return raw, nil
	}

	c.metrics.cacheMiss()
	raw, err := c.inflate(d)
	if err != nil {
		return nil, err
	}
	c.admit(d, raw)
	c.metrics.bytesInflated(len(raw))
	return raw, nil
}

// inflate reads and zlib-decompresses d's on-disk payload into a freshly
// allocated buffer of exactly d.virtLength bytes.
func (c *containerCache) inflate(d *containerDescriptor) ([]byte, error) {
	if d.fileDataStart < d.fileStart {
		return nil, newError(Internal, "container file_data_start precedes file_start", nil)
	}
	compressedLen := d.fileLength - (d.fileDataStart - d.fileStart)
	if compressedLen < 0 {
		return nil, newError(Internal, "container file_length shorter than its header", nil)
	}
	if d.virtLength > 1<<32-1 {
		return nil, newError(Internal, "container uncompressed size exceeds 32 bits", nil)
	}

	switch d.compression {
	case CompressionNone:
		raw := make([]byte, d.virtLength)
		n, err := c.src.ReadAt(raw, d.fileDataStart)
		if int64(n) < d.virtLength {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return nil, newError(ShortRead, "reading uncompressed container payload", err)
		}
		return raw, nil

	case CompressionZlib:
		compressed := make([]byte, compressedLen)
		n, err := c.src.ReadAt(compressed, d.fileDataStart)
		if int64(n) < compressedLen {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return nil, newError(ShortRead, "reading compressed container payload", err)
		}

		zr, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, newError(Decompress, "opening zlib stream", err)
		}
		defer zr.Close()

		raw := make([]byte, d.virtLength)
		if _, err := io.ReadFull(zr, raw); err != nil {
			return nil, newError(Decompress, "inflating container payload", err)
		}
		// The sized output implies the stream must end exactly here; a
		// further byte means the writer's uncompressed_size lied.
		var extra [1]byte
		if n, _ := zr.Read(extra[:]); n > 0 {
			return nil, newError(BadFile, "container inflated past its declared uncompressed size", nil)
		}
		return raw, nil

	default:
		return nil, newErrorf(Unsupported, nil, "unknown container compression method %d", d.compression)
	}
}

// admit records raw as d's resident cache, then demotes least-recently-used
// residents (re-compressing them with snappy) until the cache fits its
// budget. admit is a no-op on budget bookkeeping when c is unbounded.
func (c *containerCache) admit(d *containerDescriptor, raw []byte) {
	d.cached = raw
	c.resident += int64(len(raw))
	if c.budget <= 0 {
		return
	}
	for c.resident > c.budget {
		victim := c.lruResident(d)
		if victim == nil {
			return
		}
		c.demote(victim)
	}
}

// lruResident finds the least-recently-used cached container other than
// exempt (the one just admitted, which must not be immediately re-demoted).
func (c *containerCache) lruResident(exempt *containerDescriptor) *containerDescriptor {
	var victim *containerDescriptor
	for i := range c.idx.descriptors {
		d := &c.idx.descriptors[i]
		if d.cached == nil || d == exempt {
			continue
		}
		if victim == nil || d.lastAccess < victim.lastAccess {
			victim = d
		}
	}
	return victim
}

func (c *containerCache) demote(d *containerDescriptor) {
	c.resident -= int64(len(d.cached))
	d.snappyCompressed = snappy.Encode(nil, d.cached)
	d.cached = nil
}
