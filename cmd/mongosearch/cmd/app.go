package cmd

import (
	"context"

	"github.com/Aleph-Alpha/mongosearch/v1/logger"
	"github.com/Aleph-Alpha/mongosearch/v1/metrics"
	"github.com/Aleph-Alpha/mongosearch/v1/plugin"
	"github.com/Aleph-Alpha/mongosearch/v1/registry"
	"github.com/Aleph-Alpha/mongosearch/v1/tracer"
	"go.uber.org/fx"
)

// newApp wires logging, tracing, metrics and the plugin, and hands the
// action registry out through reg.
func newApp(cfg Config, reg **registry.Registry) *fx.App {
	return fx.New(
		fx.NopLogger,
		fx.Supply(cfg.Logger, cfg.Metrics, cfg.Tracer, cfg.Config),
		logger.FXModule,
		tracer.FXModule,
		metrics.FXModule,
		fx.Provide(
			func(l *logger.Logger) metrics.Logger { return l },
			func(l *logger.Logger) plugin.Logger { return l },
		),
		plugin.FXModule,
		fx.Populate(reg),
	)
}

// withRegistry starts the application, calls fn and stops it again.
func withRegistry(ctx context.Context, cfg Config, fn func(reg *registry.Registry) error) error {
	var reg *registry.Registry
	app := newApp(cfg, &reg)
	if err := app.Err(); err != nil {
		return err
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	runErr := fn(reg)

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
