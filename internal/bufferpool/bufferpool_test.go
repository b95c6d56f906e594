package bufferpool

import "testing"

func TestGetReturnsEmptyBuffer(t *testing.T) {
	var p Pool
	b := p.Get(16)
	defer b.Release()

	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestWriteAccumulates(t *testing.T) {
	var p Pool
	b := p.Get(0)
	defer b.Release()

	b.Write([]byte("hello"))
	b.Write([]byte(" world"))
	if string(b.Bytes()) != "hello world" {
		t.Errorf("Bytes() = %q, want %q", b.Bytes(), "hello world")
	}
	if b.Len() != len("hello world") {
		t.Errorf("Len() = %d, want %d", b.Len(), len("hello world"))
	}
}

func TestWriteByte(t *testing.T) {
	var p Pool
	b := p.Get(0)
	defer b.Release()

	if err := b.WriteByte('x'); err != nil {
		t.Fatalf("WriteByte returned an error: %v", err)
	}
	if string(b.Bytes()) != "x" {
		t.Errorf("Bytes() = %q, want %q", b.Bytes(), "x")
	}
}

func TestGetRecyclesReleasedBuffers(t *testing.T) {
	var p Pool
	b1 := p.Get(64)
	b1.Write([]byte("stale"))
	b1.Release()

	b2 := p.Get(8)
	// A buffer handed out after a Release (possibly the recycled one, whose
	// backing array may be reused) must come back empty and accept writes.
	if b2.Len() != 0 {
		t.Errorf("Len() of a freshly-Get buffer = %d, want 0", b2.Len())
	}
	b2.Write([]byte("fresh"))
	if string(b2.Bytes()) != "fresh" {
		t.Errorf("Bytes() = %q, want %q", b2.Bytes(), "fresh")
	}
	b2.Release()
}

func TestRetainDelaysRelease(t *testing.T) {
	var p Pool
	b := p.Get(8)
	b.Retain()

	b.Release() // refcount 2 -> 1, should not recycle yet
	b.Write([]byte("still alive"))
	if string(b.Bytes()) != "still alive" {
		t.Error("buffer was recycled before its second Release")
	}
	b.Release() // refcount 1 -> 0, recycles now
}
