package embedding

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultHTTPTimeoutSeconds bounds a single embeddings request.
const DefaultHTTPTimeoutSeconds = 30

// Config configures an OpenAI-compatible embeddings endpoint.
//
// Endpoint must point to the API root (e.g. "https://host/v1"); the client
// appends "/embeddings" itself.
type Config struct {
	// Endpoint is the base URL of the inference API.
	Endpoint string `yaml:"endpoint"`

	// ServiceToken is sent as a bearer token. Optional for local servers.
	ServiceToken string `yaml:"service_token"`

	// Model is the default model; Options["model"] overrides it per call.
	Model string `yaml:"model"`

	// HTTPTimeoutS is the HTTP timeout in seconds. Default: 30
	HTTPTimeoutS int `yaml:"http_timeout_seconds"`
}

// NewConfig reads the configuration from environment variables.
func NewConfig() *Config {
	timeout := DefaultHTTPTimeoutSeconds
	if v := os.Getenv("EMBEDDING_HTTP_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			timeout = n
		}
	}

	return &Config{
		Endpoint:     os.Getenv("EMBEDDING_ENDPOINT"),
		ServiceToken: os.Getenv("EMBEDDING_SERVICE_TOKEN"),
		Model:        os.Getenv("EMBEDDING_MODEL"),
		HTTPTimeoutS: timeout,
	}
}

// Validate ensures required fields are present.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("embedding: missing endpoint (EMBEDDING_ENDPOINT)")
	}
	if c.Model == "" {
		return fmt.Errorf("embedding: missing model (EMBEDDING_MODEL)")
	}
	if c.HTTPTimeoutS < 0 {
		return fmt.Errorf("embedding: http timeout must not be negative")
	}
	return nil
}
