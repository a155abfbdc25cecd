package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookstore_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	OrdersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookstore_orders_created_total",
		Help: "Orders placed",
	})

	OrderRevenue = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bookstore_order_revenue_total",
		Help: "Sum of order totals",
	})

	ChatMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_chat_messages_total",
		Help: "Assistant messages by result",
	}, []string{"result"})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_events_published_total",
		Help: "Notification events by type and result",
	}, []string{"type", "result"})

	EmailsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bookstore_emails_total",
		Help: "Email deliveries by event type and result",
	}, []string{"type", "result"})

	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bookstore_circuit_breaker_state",
		Help: "0 closed, 1 half-open, 2 open",
	}, []string{"name"})
)

var once sync.Once

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(HTTPRequests, HTTPDuration, OrdersCreated, OrderRevenue,
			ChatMessages, EventsPublished, EmailsSent, BreakerState)
	})
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBreaker records a breaker transition.
func ObserveBreaker(name string, to gobreaker.State) {
	BreakerState.WithLabelValues(name).Set(float64(to))
}

func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
