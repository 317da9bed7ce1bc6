package plugin

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/Aleph-Alpha/mongosearch/v1/embedding"
	"github.com/Aleph-Alpha/mongosearch/v1/mongodb"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config lists the MongoDB connections and the components built on them.
//
// Example YAML:
//
//	embedders:
//	  openai:
//	    endpoint: https://api.openai.com/v1
//	    service_token: ${OPENAI_API_KEY}
//	    model: text-embedding-3-small
//	connections:
//	  - name: main
//	    mongo:
//	      uri: ${MONGODB_URI}
//	    retrievers:
//	      - id: docs
//	        embedder: openai
//	        retry: {retry_attempts: 3, base_delay: 500}
//	    crud_tools: {id: docs-crud}
type Config struct {
	Connections []ConnectionConfig          `yaml:"connections" validate:"dive"`
	Embedders   map[string]embedding.Config `yaml:"embedders"`
}

// ConnectionConfig is one MongoDB deployment and its components.
type ConnectionConfig struct {
	// Name identifies the connection in logs.
	Name string `yaml:"name" validate:"required"`

	Mongo mongodb.Config `yaml:"mongo"`

	Indexers   []mongodb.IndexerConfig   `yaml:"indexers" validate:"dive"`
	Retrievers []mongodb.RetrieverConfig `yaml:"retrievers" validate:"dive"`

	// CRUDTools registers create, read, update and delete tools.
	CRUDTools *mongodb.ToolsConfig `yaml:"crud_tools"`

	// SearchIndexTools registers createSearchIndex, listSearchIndexes and
	// dropSearchIndex tools.
	SearchIndexTools *mongodb.ToolsConfig `yaml:"search_index_tools"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks required fields and that connection names are unique.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("plugin: invalid config: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Connections))
	for _, conn := range c.Connections {
		if _, dup := seen[conn.Name]; dup {
			return fmt.Errorf("plugin: duplicate connection name %q", conn.Name)
		}
		seen[conn.Name] = struct{}{}
	}
	return nil
}

var envReference = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} with the value of VAR. A bare $ is left alone.
func expandEnv(data []byte) []byte {
	return envReference.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envReference.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// LoadConfig reads a plugin configuration file with DecodeFile and
// validates it.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	var cfg Config
	if err := DecodeFile(path, &cfg, envFiles...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeFile decodes a YAML file into out. The given env files are loaded
// first (without overriding variables that are already set) and ${VAR}
// references in the YAML are expanded from the environment. Unknown keys are
// rejected.
func DecodeFile(path string, out any, envFiles ...string) error {
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return fmt.Errorf("plugin: failed to load env files: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("plugin: failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(expandEnv(data)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("plugin: failed to parse config %s: %w", path, err)
	}
	return nil
}
