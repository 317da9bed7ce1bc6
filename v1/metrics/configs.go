package metrics

// DefaultMetricsAddress is used when Config.Address is empty.
const DefaultMetricsAddress = ":9090"

// DefaultNamespace prefixes every metric registered by this module.
const DefaultNamespace = "mongosearch"

// Config defines the configuration for the Prometheus metrics server.
type Config struct {
	// Address is where the /metrics HTTP server listens, e.g. ":9090".
	// An empty address disables the server; metrics are still collected.
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS"`

	// EnableDefaultCollectors registers the Go runtime, process and build info
	// collectors.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS"`

	// Namespace prefixes all metric names.
	// Default: "mongosearch"
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`

	// ServiceName is added as a constant "service" label to every metric.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`
}
