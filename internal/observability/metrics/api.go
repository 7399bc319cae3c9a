package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APIMetrics carries the API process's private registry so tests can construct
// routers without global collector collisions.
type APIMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	draftsCreatedTotal prometheus.Counter
	pageInferenceTotal *prometheus.CounterVec
	confirmsTotal      *prometheus.CounterVec
	confirmPagesTotal  *prometheus.CounterVec
}

func NewAPIMetrics(service string) *APIMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cm",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	draftsCreatedTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cm",
			Subsystem: "split",
			Name:      "drafts_created_total",
			Help:      "Total split drafts created from uploads.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	pageInferenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cm",
			Subsystem: "split",
			Name:      "page_inference_total",
			Help:      "Total pages by metadata inference outcome.",
		},
		[]string{"service", "outcome"},
	)
	confirmsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cm",
			Subsystem: "split",
			Name:      "confirms_total",
			Help:      "Total confirm runs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	confirmPagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cm",
			Subsystem: "split",
			Name:      "confirm_pages_total",
			Help:      "Total confirmed pages by commit result.",
		},
		[]string{"service", "result"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		draftsCreatedTotal,
		pageInferenceTotal,
		confirmsTotal,
		confirmPagesTotal,
	)

	return &APIMetrics{
		service:            service,
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		draftsCreatedTotal: draftsCreatedTotal,
		pageInferenceTotal: pageInferenceTotal,
		confirmsTotal:      confirmsTotal,
		confirmPagesTotal:  confirmPagesTotal,
	}
}

func (m *APIMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *APIMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses draft ids so the path label stays low-cardinality.
func normalizePath(path string) string {
	const prefix = "/v1/documents/split/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	rest := strings.TrimPrefix(path, prefix)
	switch rest {
	case "start", "drafts":
		return path
	}
	if _, action, ok := strings.Cut(rest, "/"); ok {
		return prefix + "{draft_id}/" + action
	}
	return prefix + "{draft_id}"
}

func (m *APIMetrics) RecordDraftCreated(pagesInferred, pagesDefaulted int) {
	m.draftsCreatedTotal.Inc()
	if pagesInferred > 0 {
		m.pageInferenceTotal.WithLabelValues(m.service, "inferred").Add(float64(pagesInferred))
	}
	if pagesDefaulted > 0 {
		m.pageInferenceTotal.WithLabelValues(m.service, "defaulted").Add(float64(pagesDefaulted))
	}
}

func (m *APIMetrics) RecordConfirm(created, updated, errored int) {
	outcome := "clean"
	if errored > 0 {
		outcome = "partial"
	}
	m.confirmsTotal.WithLabelValues(m.service, outcome).Inc()

	if created > 0 {
		m.confirmPagesTotal.WithLabelValues(m.service, "created").Add(float64(created))
	}
	if updated > 0 {
		m.confirmPagesTotal.WithLabelValues(m.service, "updated").Add(float64(updated))
	}
	if errored > 0 {
		m.confirmPagesTotal.WithLabelValues(m.service, "errored").Add(float64(errored))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
