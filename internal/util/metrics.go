package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProfitChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "profit_checks_total",
		Help: "Total number of profit decisions by verdict",
	}, []string{"verdict"})

	ProfitCheckLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "profit_check_latency_seconds",
		Help:    "Latency of a single profit decision",
		Buckets: prometheus.DefBuckets,
	})

	OrdersCheckedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_checked_total",
		Help: "Total number of orders run through the profit pipeline",
	})

	OrdersConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Total number of orders confirmed after profit check",
	})

	OrdersFlaggedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_flagged_total",
		Help: "Total number of orders held in PENDING by a dangerous line",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of order check failures",
	}, []string{"reason"})

	ShadowLogFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shadow_log_failures_total",
		Help: "Total number of failed shadow log writes",
	})

	SweepOrdersProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_orders_processed_total",
		Help: "Total number of orders processed by the pending sweep",
	})

	SweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sweep_errors_total",
		Help: "Total number of order failures during the pending sweep",
	})

	NotificationSendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_sends_total",
		Help: "Total number of notification send attempts",
	}, []string{"kind", "outcome"})

	NotificationSendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_send_latency_seconds",
		Help:    "Latency of a single channel delivery",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

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
