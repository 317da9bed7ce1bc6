package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry, the HTTP server exposing it and the
// operation collectors fed by the MongoDB components.
//
// *Metrics implements observability.Observer and observability.RetryObserver,
// so it can be passed directly to mongodb.MongoClient.WithObserver.
type Metrics struct {
	// Server exposes /metrics. Nil when Config.Address is empty.
	Server *http.Server

	// Registry is the isolated registry all collectors are registered with.
	Registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationSize     *prometheus.CounterVec
	retriesTotal      *prometheus.CounterVec
}

// NewMetrics creates a dedicated registry, registers the operation collectors
// (and the default runtime collectors if enabled) under a constant service
// label, and prepares the HTTP server.
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{Address: ":9090", ServiceName: "mongosearch"})
//	client.WithObserver(m)
//	go m.Server.ListenAndServe()
func NewMetrics(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)

	m := &Metrics{Registry: registry}

	m.operationsTotal = createCounterVec(cfg.Namespace, "operations_total",
		"Total number of MongoDB operations by outcome", []string{"component", "operation", "status"})
	m.operationDuration = createHistogramVec(cfg.Namespace, "operation_duration_seconds",
		"Duration of MongoDB operations including retries", []string{"component", "operation"}, prometheus.DefBuckets)
	m.operationSize = createCounterVec(cfg.Namespace, "operation_documents_total",
		"Documents written or returned by MongoDB operations", []string{"component", "operation"})
	m.retriesTotal = createCounterVec(cfg.Namespace, "retries_total",
		"Retries performed by the retry executor", []string{"component", "operation"})

	wrapped.MustRegister(m.operationsTotal, m.operationDuration, m.operationSize, m.retriesTotal)

	if cfg.EnableDefaultCollectors {
		wrapped.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	if cfg.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		m.Server = &http.Server{
			Addr:              cfg.Address,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return m
}
