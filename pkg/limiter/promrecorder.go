package limiter

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromRecorder implements MetricsRecorder on top of Prometheus client
// metrics. It registers a counter for every Add call and a histogram for
// every Observe call, keyed by metric name; the first Add/Observe for a
// given name lazily registers the corresponding collector.
type PromRecorder struct {
	registry *prometheus.Registry

	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPromRecorder creates a PromRecorder that registers its collectors
// against registry. Pass prometheus.DefaultRegisterer's underlying registry
// (or a dedicated one for the limiter) — NewPromRecorder does not register
// itself as an HTTP handler; wire promhttp.HandlerFor(registry, ...) at the
// call site, the way cmd/example-server does.
func NewPromRecorder(registry *prometheus.Registry) *PromRecorder {
	return &PromRecorder{
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

func tagKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	return keys
}

func (r *PromRecorder) Add(name string, value float64, tags map[string]string) {
	c, ok := r.counters[name]
	if !ok {
		c = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratelimiter_" + name,
			Help: "limiter counter: " + name,
		}, tagKeys(tags))
		r.registry.MustRegister(c)
		r.counters[name] = c
	}
	c.With(tags).Add(value)
}

func (r *PromRecorder) Observe(name string, value float64, tags map[string]string) {
	h, ok := r.histograms[name]
	if !ok {
		h = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ratelimiter_" + name,
			Help:    "limiter histogram: " + name,
			Buckets: prometheus.DefBuckets,
		}, tagKeys(tags))
		r.registry.MustRegister(h)
		r.histograms[name] = h
	}
	h.With(tags).Observe(value)
}
