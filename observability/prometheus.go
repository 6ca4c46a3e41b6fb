package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusFactory is a MetricFactory backed by client_golang. Dotted
// metric names become underscore-separated; each name is registered once
// and shared by every caller asking for it.
type PrometheusFactory struct {
	registerer prometheus.Registerer
	labels     prometheus.Labels
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// PrometheusOption configures a PrometheusFactory.
type PrometheusOption func(*PrometheusFactory)

// WithConstLabels attaches constant labels (service, env) to every metric.
func WithConstLabels(labels prometheus.Labels) PrometheusOption {
	return func(f *PrometheusFactory) { f.labels = labels }
}

// WithBuckets overrides the histogram buckets.
func WithBuckets(buckets []float64) PrometheusOption {
	return func(f *PrometheusFactory) { f.buckets = buckets }
}

// NewPrometheusFactory creates a factory registering on r, or on the
// default registerer when r is nil.
func NewPrometheusFactory(r prometheus.Registerer, opts ...PrometheusOption) *PrometheusFactory {
	if r == nil {
		r = prometheus.DefaultRegisterer
	}
	f := &PrometheusFactory{
		registerer: r,
		buckets:    prometheus.DefBuckets,
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        metricName(name) + "_total",
		Help:        "recur " + name,
		ConstLabels: f.labels,
	})
	c = register(f.registerer, c)
	f.counters[name] = c
	return c
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        metricName(name),
		Help:        "recur " + name,
		Buckets:     f.buckets,
		ConstLabels: f.labels,
	})
	h = register(f.registerer, h)
	f.histograms[name] = h
	return h
}

// register adopts an already registered collector of the same description,
// so two factories over one registry share metrics.
func register[C prometheus.Collector](r prometheus.Registerer, c C) C {
	if err := r.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}
