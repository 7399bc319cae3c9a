package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	consumeTotal    *prometheus.CounterVec
	consumeDuration *prometheus.HistogramVec
	consumeInFlight prometheus.Gauge
	deliveryLag     *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	consumeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cm",
			Subsystem: "worker",
			Name:      "notification_consume_total",
			Help:      "Total consumed notification events by status.",
		},
		[]string{"service", "status"},
	)
	consumeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cm",
			Subsystem: "worker",
			Name:      "notification_consume_duration_seconds",
			Help:      "Notification persistence duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	consumeInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cm",
			Subsystem: "worker",
			Name:      "notification_consume_in_flight",
			Help:      "Number of notification events being persisted.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	deliveryLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cm",
			Subsystem: "worker",
			Name:      "notification_delivery_lag_seconds",
			Help:      "Delay between notification emission and persistence.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(consumeTotal, consumeDuration, consumeInFlight, deliveryLag)

	return &WorkerMetrics{
		registry:        registry,
		consumeTotal:    consumeTotal,
		consumeDuration: consumeDuration,
		consumeInFlight: consumeInFlight,
		deliveryLag:     deliveryLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartEvent() {
	m.consumeInFlight.Inc()
}

func (m *WorkerMetrics) FinishEvent(service string, duration time.Duration, err error) {
	m.consumeInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.consumeTotal.WithLabelValues(service, status).Inc()
	m.consumeDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveDeliveryLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.deliveryLag.WithLabelValues(service).Observe(lag.Seconds())
}
