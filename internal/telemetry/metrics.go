package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QueueMetrics contains priority-queue-related Prometheus metrics.
type QueueMetrics struct {
	Depth       *prometheus.GaugeVec
	Enqueued    *prometheus.CounterVec
	Completed   prometheus.Counter
	Failed      prometheus.Counter
	Stalled     prometheus.Counter
	DispatchLag prometheus.Histogram
}

// StockMetrics contains stock-reservation-related Prometheus metrics.
type StockMetrics struct {
	ReserveConflicts    prometheus.Counter
	ReserveInsufficient prometheus.Counter
	ReserveDuration     prometheus.Histogram
}

// BusinessMetrics contains order-lifecycle business metrics.
type BusinessMetrics struct {
	OrdersCreated   prometheus.Counter
	OrdersConfirmed prometheus.Counter
	OrdersFailed    *prometheus.CounterVec
	PaymentDuration prometheus.Histogram
}

// NewQueueMetrics creates queue metrics for a service.
func NewQueueMetrics(serviceName string) *QueueMetrics {
	return &QueueMetrics{
		Depth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: serviceName + "_queue_depth",
				Help: "Current number of waiting jobs, by priority class",
			},
			[]string{"class"},
		),
		Enqueued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_queue_enqueued_total",
				Help: "Total number of jobs enqueued, by priority class",
			},
			[]string{"class"},
		),
		Completed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_queue_completed_total",
				Help: "Total number of jobs completed successfully",
			},
		),
		Failed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_queue_failed_total",
				Help: "Total number of jobs moved to failed, by exhausted retries or by a business-failure bypass",
			},
		),
		Stalled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_queue_stalled_total",
				Help: "Total number of jobs redelivered after exceeding the soft timeout",
			},
		),
		DispatchLag: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    serviceName + "_queue_dispatch_lag_seconds",
				Help:    "Time a job spent waiting before being dispatched to a worker",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// NewStockMetrics creates stock reservation metrics for a service.
func NewStockMetrics(serviceName string) *StockMetrics {
	return &StockMetrics{
		ReserveConflicts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_stock_reserve_conflicts_total",
				Help: "Total number of version conflicts observed during reserve",
			},
		),
		ReserveInsufficient: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_stock_reserve_insufficient_total",
				Help: "Total number of reserve attempts rejected for insufficient quantity",
			},
		),
		ReserveDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    serviceName + "_stock_reserve_duration_seconds",
				Help:    "Duration of a full reserve call, including internal CAS retries",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// NewBusinessMetrics creates order-lifecycle business metrics.
func NewBusinessMetrics(serviceName string) *BusinessMetrics {
	return &BusinessMetrics{
		OrdersCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_orders_created_total",
				Help: "Total number of orders created in PENDING state",
			},
		),
		OrdersConfirmed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: serviceName + "_orders_confirmed_total",
				Help: "Total number of orders transitioned to CONFIRMED",
			},
		),
		OrdersFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: serviceName + "_orders_failed_total",
				Help: "Total number of business failures the worker recorded against orders, by reason",
			},
			[]string{"reason"},
		),
		PaymentDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    serviceName + "_payment_duration_seconds",
				Help:    "Duration of the payment side-effect call",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// RecordReserve records a completed reserve call's duration.
func (m *StockMetrics) RecordReserve(d time.Duration) {
	m.ReserveDuration.Observe(d.Seconds())
}
