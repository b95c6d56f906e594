package blf

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the optional Prometheus instrumentation for a Session. A nil
// *Metrics is valid and makes every method a no-op, so callers that never
// configure metrics pay nothing beyond a nil check.
type Metrics struct {
	objectsDecoded *prometheus.CounterVec
	bytesInflatedC prometheus.Counter
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
}

// NewMetrics registers this package's counters with reg and returns a Metrics
// ready to pass to WithMetrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		objectsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blf",
			Name:      "objects_decoded_total",
			Help:      "Number of log objects decoded, by object type.",
		}, []string{"object_type"}),
		bytesInflatedC: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blf",
			Name:      "bytes_inflated_total",
			Help:      "Total bytes produced by zlib inflation of log containers.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blf",
			Name:      "container_cache_hits_total",
			Help:      "Container cache accesses served from resident memory.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "blf",
			Name:      "container_cache_misses_total",
			Help:      "Container cache accesses that required inflation or re-inflation.",
		}),
	}
	reg.MustRegister(m.objectsDecoded, m.bytesInflatedC, m.cacheHits, m.cacheMisses)
	return m
}

func (m *Metrics) decoded(objType objectType) {
	if m == nil {
		return
	}
	m.objectsDecoded.WithLabelValues(objType.String()).Inc()
}

func (m *Metrics) bytesInflated(n int) {
	if m == nil {
		return
	}
	m.bytesInflatedC.Add(float64(n))
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) cacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
