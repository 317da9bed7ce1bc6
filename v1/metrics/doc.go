// Package metrics exposes Prometheus metrics for the MongoDB components.
//
// *Metrics implements observability.Observer: pass it to
// mongodb.MongoClient.WithObserver (the FX module does this through the
// observability.Observer it provides) and every indexer, retriever and tool
// call is counted:
//
//	mongosearch_operations_total{component,operation,status}
//	mongosearch_operation_duration_seconds{component,operation}
//	mongosearch_operation_documents_total{component,operation}
//	mongosearch_retries_total{component,operation}
//
// All metrics carry a constant service label taken from Config.ServiceName.
// The registry is served at /metrics on Config.Address.
package metrics
