package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marches360"

// Recorder - метрики, которые пишут сервисы, watcher и HTTP слой.
type Recorder interface {
	RecordTransition(recoursType, action string)
	RecordEligibility(recoursType string, eligible bool)
	SetOpenRecours(n int)
	SetExpiredDeadlines(n int)
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// Prometheus - реализация Recorder поверх client_golang.
type Prometheus struct {
	transitions      *prometheus.CounterVec
	eligibility      *prometheus.CounterVec
	openRecours      prometheus.Gauge
	expiredDeadlines prometheus.Gauge
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

// NewPrometheus создаёт метрики и регистрирует их в registerer.
func NewPrometheus(registerer prometheus.Registerer) (*Prometheus, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Prometheus{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recours_transitions_total",
			Help:      "Recours state transitions by type and action.",
		}, []string{"type", "action"}),
		eligibility: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recours_eligibility_checks_total",
			Help:      "Eligibility checks by recours type and outcome.",
		}, []string{"type", "eligible"}),
		openRecours: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recours_open",
			Help:      "Recours not yet closed, as of the last deadline sweep.",
		}),
		expiredDeadlines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recours_deadlines_expired",
			Help:      "Open recours whose active statutory deadline has passed.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	collectors := []prometheus.Collector{
		m.transitions,
		m.eligibility,
		m.openRecours,
		m.expiredDeadlines,
		m.requests,
		m.requestDuration,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Prometheus) RecordTransition(recoursType, action string) {
	m.transitions.WithLabelValues(recoursType, action).Inc()
}

func (m *Prometheus) RecordEligibility(recoursType string, eligible bool) {
	m.eligibility.WithLabelValues(recoursType, strconv.FormatBool(eligible)).Inc()
}

func (m *Prometheus) SetOpenRecours(n int) {
	m.openRecours.Set(float64(n))
}

func (m *Prometheus) SetExpiredDeadlines(n int) {
	m.expiredDeadlines.Set(float64(n))
}

func (m *Prometheus) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler отдаёт метрики из gatherer в формате Prometheus.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop ничего не записывает.
type Noop struct{}

func (Noop) RecordTransition(string, string) {}
func (Noop) RecordEligibility(string, bool) {}
func (Noop) SetOpenRecours(int) {}
func (Noop) SetExpiredDeadlines(int) {}
func (Noop) ObserveRequest(string, string, int, time.Duration) {}
