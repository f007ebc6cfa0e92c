package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_total",
		Help: "Total number of successful checkouts",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	StockDecrementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_decrements_total",
		Help: "Total number of successful stock decrements",
	})

	StockCompensationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_compensations_total",
		Help: "Total number of stock decrements rolled back",
	})

	PaymentIntentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_intents_total",
		Help: "Total number of payment intents created",
	})

	PaymentConfirmsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_confirms_total",
		Help: "Total number of payment confirmation attempts",
	}, []string{"processor", "outcome"})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of payment confirmation",
		Buckets: prometheus.DefBuckets,
	})

	RefundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Total number of refund attempts",
	}, []string{"outcome"})

	ShippingLabelsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_labels_total",
		Help: "Total number of shipping label attempts",
	}, []string{"carrier", "outcome"})

	ShipmentsCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shipments_cancelled_total",
		Help: "Total number of cancelled shipments",
	})

	OrdersExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_expired_total",
		Help: "Total number of pending orders cancelled by the expiry worker",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
