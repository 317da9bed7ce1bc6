package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a wrapper around Uber's Zap logger.
// Components of this module depend on a narrow Logger interface of their own;
// *Logger satisfies all of them.
type Logger struct {
	// Zap is the underlying zap.Logger instance, exposed for direct access
	// to Zap-specific functionality.
	Zap *zap.Logger

	// tracingEnabled makes the ...WithContext methods add trace/span IDs.
	tracingEnabled bool

	// file is the rotating writer, nil when file output is disabled.
	file io.Closer
}

// NewLoggerClient initializes a new logger based on the configuration.
//
// The logger is configured with:
//   - JSON encoding for structured logging
//   - ISO8601 timestamps under the "timestamp" key
//   - Capital letter level encoding (e.g., "INFO", "ERROR")
//   - Process ID and service name as default fields
//   - Caller information (file and line)
//   - Output to stderr, plus a rotating file when cfg.File.Path is set
//
// Example:
//
//	log := logger.NewLoggerClient(logger.Config{Level: logger.Info, ServiceName: "mongosearch"})
//	log.Info("Application started", nil, nil)
func NewLoggerClient(cfg Config) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeCaller = zapcore.FullCallerEncoder
	encoderCfg.EncodeDuration = zapcore.MillisDurationEncoder

	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level),
	}

	var file *lumberjack.Logger
	if cfg.File.Path != "" {
		file = newRotatingFile(cfg.File)
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(file), level))
	}

	z := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zap.ErrorLevel),
		zap.Fields(
			zap.Int("pid", os.Getpid()),
			zap.String("service", cfg.ServiceName),
		),
	)

	l := &Logger{
		Zap:            z,
		tracingEnabled: cfg.EnableTracing,
	}
	if file != nil {
		l.file = file
	}
	return l
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case Debug:
		return zap.DebugLevel
	case Warning:
		return zap.WarnLevel
	case Error:
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

func newRotatingFile(cfg FileConfig) *lumberjack.Logger {
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = DefaultFileMaxSizeMB
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = DefaultFileMaxBackups
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = DefaultFileMaxAgeDays
	}

	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
}

// Close flushes buffered entries and closes the log file, if any.
func (l *Logger) Close() error {
	// Sync on stderr fails on some platforms (ENOTTY/EINVAL); that is not
	// worth failing shutdown for.
	_ = l.Zap.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
