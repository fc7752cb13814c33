// Package metrics exposes Prometheus counters for document store traffic.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"local.dev/gymmit/internal/docstore"
)

// Collector implements docstore.Recorder.
type Collector struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gymmit_store_calls_total",
			Help: "Document store calls by operation and result.",
		}, []string{"op", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gymmit_store_call_seconds",
			Help:    "Document store call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(c.calls, c.latency)
	return c
}

func (c *Collector) RecordStoreCall(op string, elapsed time.Duration, err error) {
	c.calls.WithLabelValues(op, result(err)).Inc()
	c.latency.WithLabelValues(op).Observe(elapsed.Seconds())
}

// not_found and already_exists are business outcomes, kept apart from faults.
func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, docstore.ErrNotFound):
		return "not_found"
	case errors.Is(err, docstore.ErrAlreadyExists):
		return "already_exists"
	}
	return "error"
}

// Handler serves the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
