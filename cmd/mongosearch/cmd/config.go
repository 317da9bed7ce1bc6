package cmd

import (
	"github.com/Aleph-Alpha/mongosearch/v1/logger"
	"github.com/Aleph-Alpha/mongosearch/v1/metrics"
	"github.com/Aleph-Alpha/mongosearch/v1/plugin"
	"github.com/Aleph-Alpha/mongosearch/v1/tracer"
)

const serviceName = "mongosearch"

// Config is the mongosearch configuration file. Connections and embedders
// are top-level keys; logging, metrics and tracing have their own sections.
//
//	logger:
//	  level: debug
//	metrics:
//	  address: ":9090"
//	connections:
//	  - name: main
//	    mongo: {uri: "${MONGODB_URI}"}
//	    crud_tools: {id: docs}
type Config struct {
	Logger  logger.Config  `yaml:"logger"`
	Metrics metrics.Config `yaml:"metrics"`
	Tracer  tracer.Config  `yaml:"tracer"`

	plugin.Config `yaml:",inline"`
}

func defaultConfig() Config {
	return Config{
		Logger:  logger.Config{Level: logger.Info, ServiceName: serviceName},
		Metrics: metrics.Config{ServiceName: serviceName},
		Tracer:  tracer.Config{ServiceName: serviceName},
	}
}

// LoadConfig reads the file at path on top of the defaults and validates
// the plugin part.
func LoadConfig(path string, envFiles []string) (Config, error) {
	cfg := defaultConfig()
	if err := plugin.DecodeFile(path, &cfg, envFiles...); err != nil {
		return Config{}, err
	}
	if err := cfg.Config.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
