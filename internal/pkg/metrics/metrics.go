package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	CheckoutTotal   *prometheus.CounterVec // result: success / 失敗原因
	EventsPublished *prometheus.CounterVec
	CacheRequests   *prometheus.CounterVec // result: hit / miss / bypass
}

func NewCheckoutMetrics(service string) *CheckoutMetrics {
	checkoutTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecommerce",
		Subsystem: service,
		Name:      "checkout_total",
		Help:      "Total number of checkout attempts by result.",
	}, []string{"result"})
	eventsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecommerce",
		Subsystem: service,
		Name:      "events_published_total",
		Help:      "Total number of outbox events published by topic.",
	}, []string{"topic"})
	cacheRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecommerce",
		Subsystem: service,
		Name:      "cart_cache_requests_total",
		Help:      "Cart cache lookups by result.",
	}, []string{"result"})

	prometheus.MustRegister(checkoutTotal, eventsPublished, cacheRequests)
	return &CheckoutMetrics{
		CheckoutTotal:   checkoutTotal,
		EventsPublished: eventsPublished,
		CacheRequests:   cacheRequests,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
