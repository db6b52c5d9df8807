package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// Prometheus Metrics
// =============================================================================
// Collected for the broker adapter:
// - HTTP request metrics for the host boundary
// - E*TRADE API call counts and latency
// - Broker session and order outcomes
// - Go runtime metrics (memory, goroutines, GC)
// =============================================================================

var (
	registry = prometheus.NewRegistry()

	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	httpResponseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"service", "method", "path"},
	)

	// E*TRADE API metrics
	etradeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "etrade_api_requests_total",
			Help: "Total number of E*TRADE API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	etradeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "etrade_api_request_duration_seconds",
			Help:    "E*TRADE API request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Kafka metrics
	kafkaMessagesProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_produced_total",
			Help: "Total number of Kafka messages produced",
		},
		[]string{"service", "topic"},
	)

	// Broker metrics
	brokerOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_orders_total",
			Help: "Total number of orders submitted through the broker session",
		},
		[]string{"service", "side", "type", "status"},
	)

	brokerAccountsSynced = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "broker_accounts_synced",
			Help: "Number of accounts returned by the last account sync",
		},
		[]string{"service"},
	)

	brokerSessionAuthenticated = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "broker_session_authenticated",
			Help: "1 when the broker session holds an access token, 0 otherwise",
		},
		[]string{"service"},
	)

	brokerTrackedOrders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "broker_tracked_orders",
			Help: "Number of orders held in the in-memory ledger",
		},
		[]string{"service"},
	)
)

func init() {
	// Register default Go collectors
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(httpRequestsTotal)
	registry.MustRegister(httpRequestDuration)
	registry.MustRegister(httpResponseSize)

	registry.MustRegister(etradeRequestsTotal)
	registry.MustRegister(etradeRequestDuration)

	registry.MustRegister(kafkaMessagesProduced)

	registry.MustRegister(brokerOrders)
	registry.MustRegister(brokerAccountsSynced)
	registry.MustRegister(brokerSessionAuthenticated)
	registry.MustRegister(brokerTrackedOrders)
}

// Registry returns the prometheus registry
func Registry() *prometheus.Registry {
	return registry
}

// Handler returns a Fiber handler for the /metrics endpoint
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}

// =============================================================================
// Middleware
// =============================================================================

// Config holds metrics middleware configuration
type Config struct {
	ServiceName string
	SkipPaths   []string
}

// Middleware returns Fiber middleware that records HTTP metrics
func Middleware(cfg Config) fiber.Handler {
	skipPaths := make(map[string]bool)
	for _, path := range cfg.SkipPaths {
		skipPaths[path] = true
	}

	return func(c *fiber.Ctx) error {
		if skipPaths[c.Path()] {
			return c.Next()
		}

		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		method := c.Method()
		path := c.Route().Path

		httpRequestsTotal.WithLabelValues(cfg.ServiceName, method, path, status).Inc()
		httpRequestDuration.WithLabelValues(cfg.ServiceName, method, path).Observe(duration)
		httpResponseSize.WithLabelValues(cfg.ServiceName, method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// =============================================================================
// Metric Recording Functions
// =============================================================================

// RecordEtradeRequest records one E*TRADE API call. status is the HTTP status
// code, or 0 when the request never got a response.
func RecordEtradeRequest(method, endpoint string, status int, duration time.Duration) {
	etradeRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	etradeRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordKafkaMessageProduced records a Kafka message production
func RecordKafkaMessageProduced(service, topic string) {
	kafkaMessagesProduced.WithLabelValues(service, topic).Inc()
}

// RecordBrokerOrder records an order outcome
func RecordBrokerOrder(service, side, orderType, status string) {
	brokerOrders.WithLabelValues(service, side, orderType, status).Inc()
}

// SetAccountsSynced sets the account count from the last sync
func SetAccountsSynced(service string, count int) {
	brokerAccountsSynced.WithLabelValues(service).Set(float64(count))
}

// SetSessionAuthenticated flips the session authentication gauge
func SetSessionAuthenticated(service string, authenticated bool) {
	v := 0.0
	if authenticated {
		v = 1
	}
	brokerSessionAuthenticated.WithLabelValues(service).Set(v)
}

// SetTrackedOrders sets the ledger size
func SetTrackedOrders(service string, count int) {
	brokerTrackedOrders.WithLabelValues(service).Set(float64(count))
}

// =============================================================================
// Custom Metric Registration
// =============================================================================

