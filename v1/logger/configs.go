package logger

// Log levels accepted by Config.Level.
const (
	Debug   = "debug"
	Info    = "info"
	Warning = "warning"
	Error   = "error"
)

// Config controls the logger output.
type Config struct {
	// Level is one of "debug", "info", "warning" or "error".
	// Anything else logs at info.
	Level string `yaml:"level" envconfig:"ZAP_LOGGER_LEVEL"`

	// ServiceName is attached to every entry as the "service" field.
	ServiceName string `yaml:"service_name" envconfig:"LOGGER_SERVICE_NAME"`

	// EnableTracing adds trace_id and span_id to entries logged through the
	// ...WithContext methods when the context carries a span.
	EnableTracing bool `yaml:"enable_tracing" envconfig:"LOGGER_ENABLE_TRACING"`

	// File enables an additional rotating JSON log file.
	File FileConfig `yaml:"file"`
}

// FileConfig configures the rotating log file. Leave Path empty to log to
// stderr only.
type FileConfig struct {
	// Path of the active log file.
	Path string `yaml:"path" envconfig:"LOGGER_FILE_PATH"`

	// MaxSizeMB is the size at which the file is rotated. Default: 100
	MaxSizeMB int `yaml:"max_size_mb" envconfig:"LOGGER_FILE_MAX_SIZE_MB"`

	// MaxBackups is the number of rotated files kept. Default: 3
	MaxBackups int `yaml:"max_backups" envconfig:"LOGGER_FILE_MAX_BACKUPS"`

	// MaxAgeDays is how long rotated files are kept. Default: 28
	MaxAgeDays int `yaml:"max_age_days" envconfig:"LOGGER_FILE_MAX_AGE_DAYS"`

	// Compress gzips rotated files.
	Compress bool `yaml:"compress" envconfig:"LOGGER_FILE_COMPRESS"`
}

// Default rotation settings.
const (
	DefaultFileMaxSizeMB  = 100
	DefaultFileMaxBackups = 3
	DefaultFileMaxAgeDays = 28
)
