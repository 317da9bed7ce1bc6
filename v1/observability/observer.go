// Package observability defines the hook components use to report the
// operations they perform, independent of any metrics or tracing backend.
package observability

import "time"

// OperationContext describes one completed operation.
type OperationContext struct {
	// Component is the reporting component, e.g. "mongodb.indexer".
	Component string

	// Operation is the operation name, e.g. "insert_many" or "aggregate".
	Operation string

	// Resource is the primary target, typically "<db>.<collection>".
	Resource string

	// SubResource adds context such as an index name or batch range.
	SubResource string

	// Duration is the wall time of the operation including retries.
	Duration time.Duration

	// Error is the final error, nil on success.
	Error error

	// Size is an operation-specific count (documents written, results read).
	Size int64

	// Metadata holds any additional attributes.
	Metadata map[string]interface{}
}

// Observer receives operation reports. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// RetryObserver is implemented by observers that also count retries.
type RetryObserver interface {
	ObserveRetry(component, operation string, attempt int, delay time.Duration, err error)
}
