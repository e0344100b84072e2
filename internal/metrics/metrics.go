// Package metrics exposes counters for the polling subsystem.
package metrics

import (
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the polling counters. A nil *Metrics is valid and records
// nothing, so wiring stays optional.
type Metrics struct {
	registry *prometheus.Registry

	fetches        *prometheus.CounterVec
	guardSkips     *prometheus.CounterVec
	staleDiscards  *prometheus.CounterVec
	silentFailures *prometheus.CounterVec
}

// New creates and registers the counter set on a private registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.fetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdeck",
		Subsystem: "poll",
		Name:      "fetches_total",
		Help:      "Resource fetches by resource and outcome.",
	}, []string{"resource", "outcome"})

	m.guardSkips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdeck",
		Subsystem: "poll",
		Name:      "guard_skips_total",
		Help:      "Fetches skipped because one was already in flight.",
	}, []string{"resource"})

	m.staleDiscards = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdeck",
		Subsystem: "poll",
		Name:      "stale_discards_total",
		Help:      "Responses discarded because a newer request superseded them.",
	}, []string{"resource"})

	m.silentFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opsdeck",
		Subsystem: "poll",
		Name:      "silent_failures_total",
		Help:      "Background fetch failures absorbed without user notification.",
	}, []string{"resource"})

	m.registry.MustRegister(m.fetches, m.guardSkips, m.staleDiscards, m.silentFailures)
	return m
}

// FetchOK records a successful fetch.
func (m *Metrics) FetchOK(resource string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(resource, "ok").Inc()
}

// FetchFailed records a failed fetch.
func (m *Metrics) FetchFailed(resource string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(resource, "error").Inc()
}

// GuardSkip records a fetch suppressed by the in-flight guard.
func (m *Metrics) GuardSkip(resource string) {
	if m == nil {
		return
	}
	m.guardSkips.WithLabelValues(resource).Inc()
}

// StaleDiscard records a superseded response being dropped.
func (m *Metrics) StaleDiscard(resource string) {
	if m == nil {
		return
	}
	m.staleDiscards.WithLabelValues(resource).Inc()
}

// SilentFailure records an absorbed background failure.
func (m *Metrics) SilentFailure(resource string) {
	if m == nil {
		return
	}
	m.silentFailures.WithLabelValues(resource).Inc()
}

// Serve exposes /metrics on localhost at the given port. It returns the
// listener so the caller can close it on shutdown.
func (m *Metrics) Serve(port int) (net.Listener, error) {
	if m == nil {
		return nil, fmt.Errorf("metrics disabled")
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("metrics listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	go http.Serve(ln, mux)

	return ln, nil
}
