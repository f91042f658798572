// Package metrics exposes Prometheus collectors for the dispatcher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tts_gateway"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the dispatcher collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	providerHealth  *prometheus.GaugeVec
	statusDuration  prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Total provider calls by operation and outcome",
			},
			[]string{"provider", "operation", "outcome", "kind"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_request_duration_seconds",
				Help:      "Duration of provider calls in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider", "operation"},
		),
		providerHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_healthy",
				Help:      "1 when the last health check reported ok, 0 when degraded",
			},
			[]string{"provider"},
		),
		statusDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "status_fanout_duration_seconds",
				Help:      "Duration of the all-provider health fan-out",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration, m.providerHealth, m.statusDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveCall records one provider call. kind is the error kind, empty on success.
func (m *Metrics) ObserveCall(provider, operation, kind string, d time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if kind != "" {
		outcome = OutcomeError
	}
	m.requestsTotal.WithLabelValues(provider, operation, outcome, kind).Inc()
	m.requestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// SetHealth records the health of one provider.
func (m *Metrics) SetHealth(provider string, ok bool) {
	if m == nil {
		return
	}
	v := 0.0
	if ok {
		v = 1
	}
	m.providerHealth.WithLabelValues(provider).Set(v)
}

func (m *Metrics) ObserveStatus(d time.Duration) {
	if m == nil {
		return
	}
	m.statusDuration.Observe(d.Seconds())
}
