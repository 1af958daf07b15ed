// Package metrics defines the Prometheus collectors for the API. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	RequestsTotal   *prometheus.CounterVec
	ReqDuration     *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	VotesTotal      *prometheus.CounterVec
	RepliesRejected *prometheus.CounterVec
	CandidateWindow prometheus.Histogram
}

// New registers the collectors on a fresh registry that also exposes Go and process metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
			[]string{"route", "method", "status"},
		),
		ReqDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Request duration seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
		),
		VotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agora_votes_total", Help: "Votes cast by target type and resulting action"},
			[]string{"target_type", "action"},
		),
		RepliesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "agora_replies_rejected_total", Help: "Replies refused by error code"},
			[]string{"code"},
		),
		CandidateWindow: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agora_thread_candidates",
			Help:    "Threads fetched per hot/top listing before ranking",
			Buckets: []float64{5, 10, 25, 50, 100, 150, 200},
		}),
	}
	reg.MustRegister(m.RequestsTotal, m.ReqDuration, m.InFlight, m.VotesTotal, m.RepliesRejected, m.CandidateWindow)
	return m
}

func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.ReqDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) TrackInFlight(delta float64) {
	if m == nil {
		return
	}
	m.InFlight.Add(delta)
}

func (m *Metrics) VoteCast(targetType, action string) {
	if m == nil {
		return
	}
	m.VotesTotal.WithLabelValues(targetType, action).Inc()
}

func (m *Metrics) ReplyRejected(code string) {
	if m == nil {
		return
	}
	m.RepliesRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) CandidatesFetched(n int) {
	if m == nil {
		return
	}
	m.CandidateWindow.Observe(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
