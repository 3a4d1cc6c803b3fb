package prometheus

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/suteetoe/winehouse/pkg/config"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Remote backend metrics
	BackendRequestDuration *prometheus.HistogramVec

	// Cart and wishlist metrics
	CartOperationsCounter     *prometheus.CounterVec
	WishlistOperationsCounter *prometheus.CounterVec

	// Checkout metrics
	CheckoutOutcomesCounter *prometheus.CounterVec
	PendingPaymentsGauge    prometheus.Gauge

	// Session metrics
	ActiveSessionsGauge prometheus.Gauge

	initOnce sync.Once
)

// InitMetrics initializes Prometheus metrics with configuration. Only the
// first call registers collectors.
func InitMetrics(config *config.Config) {
	initOnce.Do(func() {
		register(config.Metrics.Prefix)
	})
}

func register(prefix string) {
	// HTTP request metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_backend_request_duration_seconds",
			Help:    "Duration of calls to the remote REST backend in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	CartOperationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_cart_operations_total",
			Help: "Total number of cart operations",
		},
		[]string{"operation", "result"},
	)

	WishlistOperationsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_wishlist_operations_total",
			Help: "Total number of wishlist operations",
		},
		[]string{"operation", "result"},
	)

	CheckoutOutcomesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_checkout_outcomes_total",
			Help: "Total number of checkout steps by outcome",
		},
		[]string{"outcome"},
	)

	PendingPaymentsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_pending_payments",
			Help: "Number of stored pending payment markers",
		},
	)

	ActiveSessionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_active_sessions",
			Help: "Number of live storefront sessions",
		},
	)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveHTTP records one served request
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	if HttpRequestsTotal == nil || HttpRequestDuration == nil {
		return
	}
	code := strconv.Itoa(status)
	HttpRequestsTotal.WithLabelValues(method, path, code).Inc()
	HttpRequestDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
}

// ObserveBackend records one backend call; its signature matches apiclient.Observer
func ObserveBackend(method, route string, status int, elapsed time.Duration) {
	if BackendRequestDuration == nil {
		return
	}
	BackendRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// RecordCartOperation increments the counter for cart operations
func RecordCartOperation(operation string, err error) {
	if CartOperationsCounter == nil {
		return
	}
	CartOperationsCounter.WithLabelValues(operation, result(err)).Inc()
}

// RecordWishlistOperation increments the counter for wishlist operations
func RecordWishlistOperation(operation string, err error) {
	if WishlistOperationsCounter == nil {
		return
	}
	WishlistOperationsCounter.WithLabelValues(operation, result(err)).Inc()
}

// RecordCheckoutOutcome increments the counter for a checkout outcome
func RecordCheckoutOutcome(outcome string) {
	if CheckoutOutcomesCounter == nil {
		return
	}
	CheckoutOutcomesCounter.WithLabelValues(outcome).Inc()
}

// SetPendingPayments updates the pending marker gauge
func SetPendingPayments(n int64) {
	if PendingPaymentsGauge == nil {
		return
	}
	PendingPaymentsGauge.Set(float64(n))
}

// SetActiveSessions updates the session gauge
func SetActiveSessions(n int) {
	if ActiveSessionsGauge == nil {
		return
	}
	ActiveSessionsGauge.Set(float64(n))
}
