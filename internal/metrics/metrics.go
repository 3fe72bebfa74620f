package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vaanifill",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vaanifill",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vaanifill",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vaanifill",
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Signup and login attempts by outcome.",
		},
		[]string{"action", "outcome"},
	)

	formEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vaanifill",
			Subsystem: "forms",
			Name:      "events_total",
			Help:      "Form lifecycle events.",
		},
		[]string{"event"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vaanifill",
			Subsystem: "responses",
			Name:      "submissions_total",
			Help:      "Response submissions by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		authAttempts,
		formEvents,
		submissions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/metrics" {
				return next(c)
			}

			start := time.Now()
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if !c.Response().Committed {
					status = http.StatusInternalServerError
				}
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			method := strings.ToUpper(c.Request().Method)

			httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RecordAuth counts a signup or login attempt.
func RecordAuth(action string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	authAttempts.WithLabelValues(action, outcome).Inc()
}

// RecordFormEvent counts a form lifecycle event such as "created" or "deleted".
func RecordFormEvent(event string) {
	formEvents.WithLabelValues(event).Inc()
}

// RecordSubmission counts a response submission.
func RecordSubmission(outcome string) {
	submissions.WithLabelValues(outcome).Inc()
}
