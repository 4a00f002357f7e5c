// Package metrics counts what the client does: backend calls, uploads and
// live sync messages. Everything lives on a private registry so several
// clients (or tests) never collide.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	uploads         *prometheus.CounterVec
	uploadDuration  prometheus.Histogram
	syncEvents      *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediax_client_requests_total",
			Help: "Backend calls by method and status code (0 when no response arrived)",
		}, []string{"method", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mediax_client_request_duration_seconds",
			Help:    "Backend call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediax_client_uploads_total",
			Help: "Finished uploads by outcome",
		}, []string{"outcome"}),
		uploadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediax_client_upload_duration_seconds",
			Help:    "Wall time of an upload from start to outcome",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		syncEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mediax_client_sync_events_total",
			Help: "Live sync messages by kind",
		}, []string{"kind"}),
	}
}

// ObserveRequest matches gateway.Observer.
func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveUpload matches the upload pipeline's outcome hook.
func (m *Metrics) ObserveUpload(outcome string, elapsed time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.uploads.WithLabelValues(outcome).Inc()
	m.uploadDuration.Observe(elapsed.Seconds())
}

// ObserveSyncEvent matches the live sync event hook.
func (m *Metrics) ObserveSyncEvent(kind string) {
	m.syncEvents.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// WriteSummary prints every counter as "name{labels} value", sorted. Used
// by the terminal client's stats command.
func (m *Metrics) WriteSummary(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return err
	}

	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, lp := range metric.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), metric.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)

	for _, l := range lines {
		if _, err := fmt.Fprintln(w, l); err != nil {
			return err
		}
	}
	return nil
}
