// Package logger provides structured logging for the mongosearch components.
//
// It wraps go.uber.org/zap with a small API that takes a message, an optional
// error and optional field maps:
//
//	log := logger.NewLoggerClient(logger.Config{
//	    Level:         logger.Info,
//	    ServiceName:   "mongosearch",
//	    EnableTracing: true,
//	})
//
//	log.Info("Indexed documents", nil, map[string]interface{}{
//	    "collection": "docs",
//	    "count":      250,
//	})
//
//	// Adds trace_id and span_id when ctx carries an OpenTelemetry span.
//	log.WarnWithContext(ctx, "Aggregation failed, retrying", err, nil)
//
// Entries are JSON on stderr. Setting Config.File.Path additionally writes to
// a file rotated by gopkg.in/natefinch/lumberjack.v2.
//
// The mongodb, plugin and embedding packages declare their own Logger
// interfaces with the Info/Warn/Error/Debug methods; *Logger satisfies them, so
// these packages never import this one.
//
// # FX Module Integration
//
//	app := fx.New(
//	    logger.FXModule,
//	    fx.Provide(func() logger.Config { return cfg.Logger }),
//	)
package logger
