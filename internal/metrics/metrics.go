// Package metrics provides Prometheus instrumentation for the venue engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersTotal counts accepted orders, partitioned by product and direction.
	OrdersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_orders_total",
		Help: "Total number of accepted orders",
	}, []string{"product", "direction"})

	// RiskRejections counts risk-gate rejections by reason.
	RiskRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_risk_rejections_total",
		Help: "Orders rejected by the risk gate",
	}, []string{"reason"})

	// BinarySettlements counts settled binary orders by result.
	BinarySettlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_binary_settlements_total",
		Help: "Settled binary option orders",
	}, []string{"result"})

	// ActiveBinaryOrders tracks the number of unsettled binary orders.
	ActiveBinaryOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "venue_active_binary_orders",
		Help: "Number of currently active binary orders",
	})

	// TickDuration is the duration of one full market tick.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "venue_tick_duration_seconds",
		Help:    "Market tick duration in seconds",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	})

	// FundTransactions counts fund subscriptions and redemptions.
	FundTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_fund_transactions_total",
		Help: "Total fund subscriptions and redemptions",
	}, []string{"type"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "venue_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "venue_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "venue_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
