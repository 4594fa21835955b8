// Package metrics exposes Prometheus collectors of the bot farm. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "botfarm"

const (
	KindCourse  = "course"
	KindPreview = "preview"
)

type Metrics struct {
	notificationsSent   *prometheus.CounterVec
	notificationsFailed *prometheus.CounterVec
	parseFailures       prometheus.Counter
	activeSchedulers    prometheus.Gauge
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns metrics registered in the default registry.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New registers metrics in the given registry. Tests use their own registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		notificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "sent_total",
			Help:      "Number of reminders delivered by kind (course or daily preview)",
		}, []string{"kind"}),
		notificationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "failed_total",
			Help:      "Number of reminders the transport failed to deliver by kind",
		}, []string{"kind"}),
		parseFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "schedule",
			Name:      "parse_failures_total",
			Help:      "Number of schedules that couldn't be parsed",
		}),
		activeSchedulers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "active_schedulers",
			Help:      "Number of running per-user reminder loops",
		}),
	}
}

func (m *Metrics) Sent(kind string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) Failed(kind string) {
	if m == nil {
		return
	}
	m.notificationsFailed.WithLabelValues(kind).Inc()
}

func (m *Metrics) ParseFailed() {
	if m == nil {
		return
	}
	m.parseFailures.Inc()
}

func (m *Metrics) SetActiveSchedulers(n int) {
	if m == nil {
		return
	}
	m.activeSchedulers.Set(float64(n))
}

// Handler serves metrics of the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
