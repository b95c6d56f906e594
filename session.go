package blf

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vblf/blfdecode/internal/logging"
)

// Session is an open BLF capture. It owns the container index built at Open
// time and the demultiplexer's cursor; it is not safe for concurrent use by
// more than one goroutine.
type Session struct {
	src    io.ReaderAt
	closer io.Closer

	idx   *containerIndex
	cache *containerCache
	vr    *virtualReader
	dm    *demux

	registry *interfaceRegistry
	metrics  *Metrics

	cursor int64
}

// Option configures a Session at Open/OpenReader time.
type Option func(*options)

type options struct {
	log              logging.L
	metrics          *Metrics
	cacheBudget      int64
	interfaceObserve func(InterfaceDescriptor)
}

// WithLogger attaches a logging.L sink for warnings about malformed-but-
// tolerated input (skipped top-level objects, unrecognized timestamp
// resolution, and the like). The default is a no-op logger.
func WithLogger(log logging.L) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics registers this package's Prometheus counters with reg and
// wires them into the returned Session. Passing nil (the default) disables
// metrics entirely at zero runtime cost.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		if reg != nil {
			o.metrics = NewMetrics(reg)
		}
	}
}

// WithCacheBudget bounds the container cache's resident decompressed bytes.
// Containers beyond the budget are demoted to a snappy-compressed form
// instead of being dropped, so random_read latency degrades gracefully
// rather than falling back to a full re-inflate. 0 (the default) means
// unbounded: every touched container stays resident for the Session's life.
func WithCacheBudget(bytes int64) Option {
	return func(o *options) { o.cacheBudget = bytes }
}

// WithInterfaceObserver registers a callback fired the first time the
// session sees a given (encap, channel, hw_channel) tuple, mirroring
// spec.md's "publish interface to host" step.
func WithInterfaceObserver(fn func(InterfaceDescriptor)) Option {
	return func(o *options) { o.interfaceObserve = fn }
}

// Open opens the BLF file at path.
func Open(path string, opts ...Option) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(NotMine, "opening file", err)
	}
	s, err := OpenReader(f, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// OpenReader opens a BLF capture already available as an io.ReaderAt, such
// as an *os.File, a bytes.Reader, or a memory-mapped region. The caller
// retains ownership of r; Close will not close it unless r also implements
// io.Closer.
func OpenReader(r io.ReaderAt, opts ...Option) (*Session, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	log := logging.Must(o.log)

	startOffsetNS, firstBlockOffset, err := readFileHeader(r)
	if err != nil {
		return nil, err
	}

	idx, err := buildContainerIndex(r, firstBlockOffset, log)
	if err != nil {
		return nil, err
	}

	cache := newContainerCache(r, idx, o.cacheBudget, o.metrics)
	vr := &virtualReader{src: r, idx: idx, cache: cache}
	registry := newInterfaceRegistry(log, o.interfaceObserve)
	em := &emitter{startOffsetNS: startOffsetNS, registry: registry, log: log, metrics: o.metrics}
	dm := newDemux(vr, em, log)

	s := &Session{
		src:      r,
		idx:      idx,
		cache:    cache,
		vr:       vr,
		dm:       dm,
		registry: registry,
		metrics:  o.metrics,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// Next decodes and returns the next packet record in file order. It returns
// io.EOF itself (not wrapped) once the stream is exhausted; any ShortRead
// error from the decoder is reported as io.EOF too.
func (s *Session) Next() (*PacketRecord, error) {
	rec, nextVirt, err := s.dm.next(s.cursor)
	if err != nil {
		if IsKind(err, ShortRead) {
			return nil, io.EOF
		}
		return nil, err
	}
	s.cursor = nextVirt
	return rec, nil
}

// ReadAt decodes the single record located at locator (a PacketRecord's
// VirtOffset from an earlier call), without disturbing Next's sequential
// cursor.
func (s *Session) ReadAt(locator int64) (*PacketRecord, error) {
	rec, _, err := s.dm.next(locator)
	if err != nil {
		if IsKind(err, ShortRead) {
			return nil, io.EOF
		}
		return nil, err
	}
	return rec, nil
}

// Interfaces returns every interface descriptor created so far, in creation
// order. The set grows as Next/ReadAt discover new (encap, channel,
// hw_channel) tuples, so a complete listing is only guaranteed after a full
// sequential pass.
func (s *Session) Interfaces() []InterfaceDescriptor {
	return s.registry.interfaces()
}

// Close closes the underlying source if it implements io.Closer: always the
// file opened by Open, and the reader passed to OpenReader when it is one.
func (s *Session) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
