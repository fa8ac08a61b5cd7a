// Package echoprom provides Echo middleware and chat event counters for
// Prometheus. Every Metrics value owns its registry, exposed through Handler.
package echoprom

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP and chat collectors
type Metrics struct {
	Registry *prometheus.Registry

	// RequestDuration measures request latency
	RequestDuration *prometheus.HistogramVec
	// RequestsTotal counts total requests by status code and path
	RequestsTotal *prometheus.CounterVec

	EventsTotal  *prometheus.CounterVec
	RepliesTotal *prometheus.CounterVec
	Sockets      prometheus.Gauge
}

// New creates a Metrics with a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by status code",
			},
			[]string{"path", "method", "code"},
		),
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flex_events_total",
				Help: "Inbound chat events by command and outcome",
			},
			[]string{"event", "outcome"},
		),
		RepliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flex_replies_total",
				Help: "Outbound chat events by name",
			},
			[]string{"event"},
		),
		Sockets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flex_sockets",
			Help: "Currently connected sockets",
		}),
	}
}

// Config holds configuration for the middleware
type Config struct {
	// Skipper defines a function to skip middleware
	Skipper func(c echo.Context) bool
}

// DefaultConfig provides default configuration
func DefaultConfig() Config {
	return Config{
		Skipper: func(c echo.Context) bool { return false },
	}
}

// Middleware returns Echo middleware which records Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return m.MiddlewareWithConfig(DefaultConfig())
}

// MiddlewareWithConfig returns Echo middleware with config
func (m *Metrics) MiddlewareWithConfig(config Config) echo.MiddlewareFunc {
	if config.Skipper == nil {
		config.Skipper = DefaultConfig().Skipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper(c) {
				return next(c)
			}

			start := time.Now()
			// route pattern, not the raw URL, to bound cardinality
			path := c.Path()
			method := c.Request().Method

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			m.RequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()

			return nil
		}
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveEvent counts one inbound chat event
func (m *Metrics) ObserveEvent(event, outcome string) {
	m.EventsTotal.WithLabelValues(event, outcome).Inc()
}

// ObserveReply counts one outbound chat event
func (m *Metrics) ObserveReply(event string) {
	m.RepliesTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) SocketOpened() { m.Sockets.Inc() }
func (m *Metrics) SocketClosed() { m.Sockets.Dec() }
