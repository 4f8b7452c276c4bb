package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/walkure/shtnode/pkg/util"
)

// Labels is a set of labels for a metric
type Labels map[string]string

// Names returns the sorted label names.
func (l Labels) Names() []string {
	return util.Keys(l)
}

// MetricSet owns a prometheus registry whose metrics all carry the same base
// labels.
type MetricSet struct {
	reg    *prometheus.Registry
	labels Labels

	mu       sync.Mutex
	gauges   map[string]*Gauge
	counters map[string]*Counter
}

func NewMetricSet(labels Labels) *MetricSet {
	return &MetricSet{
		reg:      prometheus.NewRegistry(),
		labels:   labels,
		gauges:   make(map[string]*Gauge),
		counters: make(map[string]*Counter),
	}
}

// Registry exposes the underlying registry, e.g. for extra collectors.
func (s *MetricSet) Registry() *prometheus.Registry {
	return s.reg
}

// Handler serves the set in the exposition format.
func (s *MetricSet) Handler() http.Handler {
	return promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{})
}

// NewGauge registers a gauge rounded to precision digits. Asking twice for the
// same name returns the same gauge.
func (s *MetricSet) NewGauge(name, help string, precision int) *Gauge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.gauges[name]; ok {
		return g
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: help,
	}, s.labels.Names())
	s.reg.MustRegister(vec)
	g := &Gauge{vec: vec, labels: prometheus.Labels(s.labels), precision: precision}
	s.gauges[name] = g
	return g
}

func (s *MetricSet) NewCounter(name, help string) *Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.counters[name]; ok {
		return c
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: help,
	}, s.labels.Names())
	s.reg.MustRegister(vec)
	c := &Counter{vec: vec, labels: prometheus.Labels(s.labels)}
	s.counters[name] = c
	return c
}

// Gauge is a single labelled gauge.
type Gauge struct {
	vec       *prometheus.GaugeVec
	labels    prometheus.Labels
	precision int
}

func (g *Gauge) Set(value float64) {
	g.vec.With(g.labels).Set(RoundFloat64{Value: value, Precision: g.precision}.Float64())
}

// Clear removes the sample so that a stale value is not scraped.
func (g *Gauge) Clear() {
	g.vec.Delete(g.labels)
}

// Counter is a single labelled counter.
type Counter struct {
	vec    *prometheus.CounterVec
	labels prometheus.Labels
}

// Add increments the counter. Zero is a no-op but still exposes the series.
func (c *Counter) Add(delta uint64) {
	c.vec.With(c.labels).Add(float64(delta))
}
