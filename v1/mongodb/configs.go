package mongodb

import (
	"time"

	"github.com/Aleph-Alpha/mongosearch/v1/embedding"
	"github.com/Aleph-Alpha/mongosearch/v1/retry"
)

// Default values for configuration
const (
	DefaultConnectTimeout         = 10 * time.Second
	DefaultServerSelectionTimeout = 10 * time.Second
	DefaultMaxPoolSize            = 100
	DefaultMinPoolSize            = 0

	DefaultDataField      = "data"
	DefaultDataTypeField  = "dataType"
	DefaultMetadataField  = "metadata"
	DefaultEmbeddingField = "embedding"
	DefaultDataType       = "text"

	DefaultBatchSize   = 100
	DefaultConcurrency = 1

	DefaultSearchLimit     = 10
	DefaultCandidateFactor = 10
	DefaultTextSearchIndex = "default"
	DefaultHybridWeight    = 1.0
)

// Config defines the connection settings for a MongoDB deployment.
//
// Example:
//
//	cfg := mongodb.Config{
//		URI:     "mongodb://localhost:27017/?directConnection=true",
//		AppName: "mongosearch",
//	}
type Config struct {
	// URI is the MongoDB connection string.
	URI string `yaml:"uri" validate:"required"`

	// AppName is reported to the server in the connection handshake.
	AppName string `yaml:"app_name"`

	// ConnectTimeout bounds establishing a connection and the startup ping.
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ServerSelectionTimeout bounds how long an operation waits for a
	// suitable server. Default: 10s
	ServerSelectionTimeout time.Duration `yaml:"server_selection_timeout"`

	// MaxPoolSize is the maximum number of connections per server.
	// Default: 100
	MaxPoolSize uint64 `yaml:"max_pool_size"`

	// MinPoolSize is the minimum number of idle connections per server.
	MinPoolSize uint64 `yaml:"min_pool_size"`

	// PingOnStart makes NewClient fail fast when the primary is unreachable.
	// Default: true
	PingOnStart *bool `yaml:"ping_on_start"`

	// Logger is an optional logger from the v1/logger package
	Logger Logger `yaml:"-"`
}

// Logger is an interface that matches the v1/logger.Logger
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, error, ...map[string]interface{}) {}
func (nopLogger) Info(string, error, ...map[string]interface{})  {}
func (nopLogger) Warn(string, error, ...map[string]interface{})  {}
func (nopLogger) Error(string, error, ...map[string]interface{}) {}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ServerSelectionTimeout == 0 {
		c.ServerSelectionTimeout = DefaultServerSelectionTimeout
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = DefaultMaxPoolSize
	}
	if c.PingOnStart == nil {
		ping := true
		c.PingOnStart = &ping
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
	return c
}

// IndexerConfig is the registration-time configuration of an Indexer.
type IndexerConfig struct {
	// ID names the indexer; it is registered as "mongodb/<ID>".
	ID string `yaml:"id" json:"id" validate:"required"`

	// Embedder names the embedder used for document contents.
	Embedder string `yaml:"embedder" json:"embedder" validate:"required"`

	// EmbedderOptions are passed to every Embed call.
	EmbedderOptions embedding.Options `yaml:"embedder_options" json:"embedderOptions,omitempty"`

	// Retry governs the InsertMany call of each batch.
	Retry retry.Config `yaml:"retry" json:"retry"`

	// Concurrency is the number of batches written in parallel. Default: 1
	Concurrency int `yaml:"concurrency" json:"concurrency,omitempty" validate:"gte=0"`
}

// RetrieverConfig is the registration-time configuration of a Retriever.
type RetrieverConfig struct {
	// ID names the retriever; it is registered as "mongodb/<ID>".
	ID string `yaml:"id" json:"id" validate:"required"`

	// Embedder names the embedder used for query text.
	Embedder string `yaml:"embedder" json:"embedder" validate:"required"`

	// EmbedderOptions are passed to every Embed call.
	EmbedderOptions embedding.Options `yaml:"embedder_options" json:"embedderOptions,omitempty"`

	// Retry governs the aggregation call.
	Retry retry.Config `yaml:"retry" json:"retry"`

	// EmbeddingCacheTTL caches query embeddings for the given duration.
	// Zero disables the cache.
	EmbeddingCacheTTL time.Duration `yaml:"embedding_cache_ttl" json:"embeddingCacheTTL,omitempty" validate:"gte=0"`
}

// ToolsConfig configures a CRUD or search index tool set.
type ToolsConfig struct {
	// ID prefixes the tool names: "mongodb/<ID>/<operation>".
	ID string `yaml:"id" json:"id" validate:"required"`
}

// FieldNames maps document parts to stored field names. Empty names fall
// back to the defaults ("data", "dataType", "metadata", "embedding").
type FieldNames struct {
	DataField      string `json:"dataField,omitempty"`
	DataTypeField  string `json:"dataTypeField,omitempty"`
	MetadataField  string `json:"metadataField,omitempty"`
	EmbeddingField string `json:"embeddingField,omitempty"`
}

func (f FieldNames) withDefaults() FieldNames {
	if f.DataField == "" {
		f.DataField = DefaultDataField
	}
	if f.DataTypeField == "" {
		f.DataTypeField = DefaultDataTypeField
	}
	if f.MetadataField == "" {
		f.MetadataField = DefaultMetadataField
	}
	if f.EmbeddingField == "" {
		f.EmbeddingField = DefaultEmbeddingField
	}
	return f
}
