package mongodb

import (
	"context"

	"github.com/Aleph-Alpha/mongosearch/v1/observability"
	"go.uber.org/fx"
)

// FXModule is an fx.Module that provides and configures the MongoDB client.
// The client is also exposed as Collections, so indexers, retrievers and
// tools can be constructed from it.
//
// Usage:
//
//	app := fx.New(
//	    mongodb.FXModule,
//	    fx.Provide(func() mongodb.Config {
//	        return mongodb.Config{URI: os.Getenv("MONGODB_URI")}
//	    }),
//	)
var FXModule = fx.Module("mongodb",
	fx.Provide(
		NewClientWithDI,
		func(c *MongoClient) Collections { return c },
	),
	fx.Invoke(RegisterMongoLifecycle),
)

// MongoParams groups the dependencies needed to create a MongoDB client
type MongoParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"` // Optional logger from v1/logger
	Observer observability.Observer `optional:"true"` // Optional observer from v1/metrics
}

// NewClientWithDI creates a new MongoDB client using dependency injection.
// The optional logger is injected into the config before delegating to
// NewClient; the optional observer is attached to the resulting client.
func NewClientWithDI(params MongoParams) (*MongoClient, error) {
	if params.Logger != nil {
		params.Config.Logger = params.Logger
	}

	client, err := NewClient(params.Config)
	if err != nil {
		return nil, err
	}
	if params.Observer != nil {
		client.WithObserver(params.Observer)
	}
	return client, nil
}

// MongoLifecycleParams groups the dependencies needed for MongoDB lifecycle management
type MongoLifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Client    *MongoClient
}

// RegisterMongoLifecycle pings the primary on application start and
// disconnects the client on stop.
func RegisterMongoLifecycle(params MongoLifecycleParams) {
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.Client.Ping(ctx); err != nil {
				params.Client.logger.Warn("Failed to ping MongoDB on startup", err)
				return err
			}
			params.Client.logger.Info("MongoDB client started and healthy", nil)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return params.Client.Close(ctx)
		},
	})
}
