package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_http_requests_total",
			Help: "Total number of HTTP requests processed by the board service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "board_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "board_ws_active_connections",
			Help: "Number of active board websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"event"},
	)
	boardSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "board_subscribers",
			Help: "Number of live board subscriptions across all actors.",
		},
	)
	boardOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_operations_total",
			Help: "Total number of board mutations applied, by operation.",
		},
		[]string{"op"},
	)
	boardBroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "board_broadcasts_total",
			Help: "Total number of events broadcast to board subscribers.",
		},
		[]string{"type"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "board_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		wsActiveConnections,
		wsEventsTotal,
		boardSubscribers,
		boardOpsTotal,
		boardBroadcastsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncSubscribers() {
	boardSubscribers.Inc()
}

func DecSubscribers() {
	boardSubscribers.Dec()
}

func IncBoardOp(op string) {
	boardOpsTotal.WithLabelValues(op).Inc()
}

func IncBroadcast(eventType string) {
	boardBroadcastsTotal.WithLabelValues(eventType).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
