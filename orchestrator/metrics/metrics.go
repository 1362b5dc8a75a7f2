// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the orchestrator's private registry. Collectors are never
// registered on the global default registry.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	transactionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchestrator",
		Name:      "transactions_total",
		Help:      "Transactions entering a lifecycle status",
	}, []string{"protocol", "status"})

	stageErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orchestrator",
		Name:      "stage_errors_total",
		Help:      "Lifecycle stage failures",
	}, []string{"stage"})

	rpcRequestSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "orchestrator",
		Name:      "rpc_request_seconds",
		Help:      "JSON-RPC request latency, including retries",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"method"})
)

// TransactionStatus counts a transaction entering status.
func TransactionStatus(protocol, status string) {
	transactionsTotal.WithLabelValues(protocol, status).Inc()
}

// StageError counts a failed lifecycle stage.
func StageError(stage string) {
	stageErrorsTotal.WithLabelValues(stage).Inc()
}

// ObserveRPC records one JSON-RPC call.
func ObserveRPC(method string, elapsed time.Duration) {
	rpcRequestSeconds.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
