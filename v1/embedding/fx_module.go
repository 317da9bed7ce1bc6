package embedding

import (
	"context"

	"go.uber.org/fx"
)

// FXModule wires a single environment-configured embedding client into Fx.
//
// It provides:
//   - *Config   (NewConfig, from EMBEDDING_* variables)
//   - *Client   (NewClient)
//   - Embedder  (the same *Client)
var FXModule = fx.Module(
	"embedding",

	fx.Provide(
		NewConfig,
		NewClient,
		func(c *Client) Embedder { return c },
	),

	fx.Invoke(RegisterEmbeddingLifecycle),
)

// RegisterEmbeddingLifecycle closes the client on application shutdown.
func RegisterEmbeddingLifecycle(lc fx.Lifecycle, client *Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}
