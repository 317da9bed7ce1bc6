package plugin

import (
	"context"

	"github.com/Aleph-Alpha/mongosearch/v1/observability"
	"github.com/Aleph-Alpha/mongosearch/v1/registry"
	"go.uber.org/fx"
)

// FXModule provides the *Plugin and its *registry.Registry, and closes all
// MongoDB clients when the application stops.
//
// Usage:
//
//	app := fx.New(
//	    plugin.FXModule,
//	    fx.Provide(func() (plugin.Config, error) {
//	        return plugin.LoadConfig("mongosearch.yaml", ".env")
//	    }),
//	)
var FXModule = fx.Module("plugin",
	fx.Provide(
		NewWithDI,
		func(p *Plugin) *registry.Registry { return p.Registry() },
	),
	fx.Invoke(RegisterPluginLifecycle),
)

// PluginParams groups the dependencies needed to create the plugin
type PluginParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
	Options  []Option               `group:"plugin_options"`
}

// NewWithDI creates the plugin from injected dependencies. Extra options,
// such as WithEmbedder, can be contributed to the "plugin_options" group.
func NewWithDI(params PluginParams) (*Plugin, error) {
	opts := append([]Option{
		WithLogger(params.Logger),
		WithObserver(params.Observer),
	}, params.Options...)

	return New(params.Config, opts...)
}

// PluginLifecycleParams groups the dependencies needed for lifecycle management
type PluginLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Plugin    *Plugin
}

// RegisterPluginLifecycle disconnects all clients on application stop.
func RegisterPluginLifecycle(params PluginLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return params.Plugin.Close(ctx)
		},
	})
}
