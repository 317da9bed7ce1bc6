package mongodb

import (
	"context"
	"time"

	"github.com/Aleph-Alpha/mongosearch/v1/observability"
	"github.com/Aleph-Alpha/mongosearch/v1/retry"
	"github.com/Aleph-Alpha/mongosearch/v1/tracer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = tracer.InstrumentationName + "/v1/mongodb"

// instrumentation bundles the logger, observer and tracer shared by the
// indexer, retriever and tools.
type instrumentation struct {
	component string
	logger    Logger
	observer  observability.Observer
}

func newInstrumentation(component string) instrumentation {
	return instrumentation{component: component, logger: nopLogger{}}
}

// observeOperation notifies the observer about an operation if one is configured.
//
// Notes:
//   - resource: "<db>.<collection>"
//   - subResource: additional context like an index name or a batch range
func (in *instrumentation) observeOperation(operation, resource, subResource string, duration time.Duration, err error, size int64, metadata map[string]interface{}) {
	if in.observer == nil {
		return
	}

	in.observer.ObserveOperation(observability.OperationContext{
		Component:   in.component,
		Operation:   operation,
		Resource:    resource,
		SubResource: subResource,
		Duration:    duration,
		Error:       err,
		Size:        size,
		Metadata:    metadata,
	})
}

// startSpan opens a span named "<component>.<operation>" on the global
// tracer provider.
func (in *instrumentation) startSpan(ctx context.Context, operation string, attrs map[string]interface{}) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, in.component+"."+operation)
	span.SetAttributes(tracer.Attributes(attrs)...)
	return ctx, span
}

// endSpan records err on the span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	tracer.RecordError(span, err)
	span.End()
}

// retryNotify logs every retry and reports it to observers that count them.
func (in *instrumentation) retryNotify(operation, resource string) retry.Option {
	return retry.WithNotify(func(err error, attempt int, delay time.Duration) {
		in.logger.Warn("retrying MongoDB operation", err, map[string]interface{}{
			"component": in.component,
			"operation": operation,
			"resource":  resource,
			"attempt":   attempt,
			"delay_ms":  delay.Milliseconds(),
		})
		if ro, ok := in.observer.(observability.RetryObserver); ok {
			ro.ObserveRetry(in.component, operation, attempt, delay, err)
		}
	})
}

// inheritFrom copies the logger and observer of a MongoClient, so components
// built from it report the same way.
func (in *instrumentation) inheritFrom(collections Collections) {
	src, ok := collections.(interface {
		Logger() Logger
		Observer() observability.Observer
	})
	if !ok {
		return
	}
	if l := src.Logger(); l != nil {
		in.logger = l
	}
	in.observer = src.Observer()
}
