package metrics

import (
	"time"

	"github.com/Aleph-Alpha/mongosearch/v1/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// ObserveOperation records the outcome, duration and size of one operation.
func (m *Metrics) ObserveOperation(op observability.OperationContext) {
	status := "success"
	if op.Error != nil {
		status = "error"
	}

	m.operationsTotal.WithLabelValues(op.Component, op.Operation, status).Inc()
	m.operationDuration.WithLabelValues(op.Component, op.Operation).Observe(op.Duration.Seconds())
	if op.Size > 0 {
		m.operationSize.WithLabelValues(op.Component, op.Operation).Add(float64(op.Size))
	}
}

// ObserveRetry counts one retry decision of the retry executor.
func (m *Metrics) ObserveRetry(component, operation string, _ int, _ time.Duration, _ error) {
	m.retriesTotal.WithLabelValues(component, operation).Inc()
}

// CreateCounter creates a new CounterVec metric and registers it.
func (m *Metrics) CreateCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := createCounterVec("", name, help, labels)
	m.Registry.MustRegister(counter)
	return counter
}

// CreateHistogram creates a new HistogramVec metric and registers it.
func (m *Metrics) CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	hist := createHistogramVec("", name, help, labels, buckets)
	m.Registry.MustRegister(hist)
	return hist
}

func createCounterVec(namespace, name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func createHistogramVec(namespace, name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		},
		labels,
	)
}
