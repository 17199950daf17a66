package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CodesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finops_transaction_codes_generated_total",
		Help: "Transaction codes issued, by type prefix",
	}, []string{"prefix"})

	SequenceErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finops_sequence_errors_total",
		Help: "Failed sequence counter increments",
	})

	AuditWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finops_audit_writes_total",
		Help: "Audit entries persisted, by action",
	}, []string{"action"})

	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "finops_audit_write_failures_total",
		Help: "Audit entries that could not be persisted",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finops_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finops_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"method", "route"})
)
