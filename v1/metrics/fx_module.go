package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/Aleph-Alpha/mongosearch/v1/observability"
	"go.uber.org/fx"
)

// Logger is the logging surface the metrics lifecycle needs.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// FXModule provides *Metrics, exposes it as an observability.Observer and
// runs the /metrics server for the lifetime of the application.
//
// Usage:
//
//	app := fx.New(
//	    metrics.FXModule,
//	    fx.Provide(func() metrics.Config {
//	        return metrics.Config{Address: ":9090", ServiceName: "mongosearch"}
//	    }),
//	)
var FXModule = fx.Module("metrics",
	fx.Provide(
		NewMetrics,
		func(m *Metrics) observability.Observer { return m },
	),
	fx.Invoke(RegisterMetricsLifecycle),
)

// MetricsLifecycleParams groups the dependencies of RegisterMetricsLifecycle.
type MetricsLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Metrics   *Metrics
	Logger    Logger `optional:"true"`
}

// RegisterMetricsLifecycle starts the HTTP server in the background on start
// and shuts it down gracefully on stop. It does nothing when the server is
// disabled.
func RegisterMetricsLifecycle(p MetricsLifecycleParams) {
	if p.Metrics.Server == nil {
		return
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if p.Logger != nil {
					p.Logger.Info("Starting Prometheus metrics server", nil, map[string]interface{}{
						"address": p.Metrics.Server.Addr,
					})
				}
				if err := p.Metrics.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && p.Logger != nil {
					p.Logger.Error("Prometheus metrics server failed", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return p.Metrics.Server.Shutdown(ctx)
		},
	})
}
