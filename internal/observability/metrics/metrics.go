package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	paymentEvents  *prometheus.CounterVec
	ordersComplete prometheus.Counter
	rateLimited    *prometheus.CounterVec
}

// New registers the storefront instruments on the given registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		paymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_payment_events_total",
			Help: "Processed payment webhook events by provider and type.",
		}, []string{"provider", "event_type"}),
		ordersComplete: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_completed_total",
			Help: "Orders transitioned to completed.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"endpoint"}),
	}

	for _, c := range []prometheus.Collector{
		m.httpRequests, m.httpDuration, m.paymentEvents, m.ordersComplete, m.rateLimited,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordPaymentEvent(provider, eventType string) {
	if m == nil {
		return
	}
	m.paymentEvents.WithLabelValues(
		strings.TrimSpace(provider),
		strings.TrimSpace(eventType),
	).Inc()
}

func (m *Metrics) RecordOrderCompleted() {
	if m == nil {
		return
	}
	m.ordersComplete.Inc()
}

func (m *Metrics) RecordRateLimited(endpoint string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(strings.TrimSpace(endpoint)).Inc()
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if strings.TrimSpace(route) == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
