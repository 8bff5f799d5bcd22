package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_operations_total",
			Help: "Engine operations by outcome",
		},
		[]string{"operation", "outcome"},
	)
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "economy_operation_duration_seconds",
			Help:    "Engine operation latency including the store transaction",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
	CurrencyIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_currency_issued_total",
			Help: "Currency credited to accounts",
		},
		[]string{"category"},
	)
	CurrencySpent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "economy_currency_spent_total",
			Help: "Currency debited from accounts",
		},
		[]string{"category"},
	)
)

func init() {
	prometheus.MustRegister(OperationsTotal)
	prometheus.MustRegister(OperationDuration)
	prometheus.MustRegister(CurrencyIssued)
	prometheus.MustRegister(CurrencySpent)
}

func observe(operation, outcome string, start time.Time) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	return Code(err)
}
