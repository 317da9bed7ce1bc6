package mongodb

import (
	"context"
	"fmt"
	"sync"

	"github.com/Aleph-Alpha/mongosearch/v1/observability"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoClient represents a client for interacting with MongoDB.
// It wraps the official driver client and hands out Collections that the
// indexer, retriever and tools operate on.
//
// MongoClient implements the Collections interface.
type MongoClient struct {
	// client is the underlying driver client
	client *mongo.Client

	// cfg stores the resolved configuration for this client
	cfg Config

	// logger is used for structured logging
	logger Logger

	// observer provides optional observability hooks for tracking operations
	observer observability.Observer

	// mu protects client against use after Close
	mu sync.RWMutex
}

// NewClient creates a MongoDB client, applies configuration defaults and,
// unless PingOnStart is false, verifies that the primary is reachable.
//
// Example:
//
//	client, err := mongodb.NewClient(mongodb.Config{
//		URI: "mongodb://localhost:27017/?directConnection=true",
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
func NewClient(cfg Config) (*MongoClient, error) {
	if err := validateStruct(cfg); err != nil {
		return nil, fmt.Errorf("[MongoDB] invalid config: %w", err)
	}
	cfg = cfg.withDefaults()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}

	cfg.Logger.Info("Connecting to MongoDB", nil, map[string]interface{}{
		"app_name":      cfg.AppName,
		"max_pool":      cfg.MaxPoolSize,
		"ping_on_start": *cfg.PingOnStart,
	})

	client, err := mongo.Connect(opts)
	if err != nil {
		cfg.Logger.Error("failed to create MongoDB client", err)
		return nil, fmt.Errorf("[MongoDB] failed to connect: %w", err)
	}

	m := &MongoClient{
		client: client,
		cfg:    cfg,
		logger: cfg.Logger,
	}

	if *cfg.PingOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
		defer cancel()

		if err := m.Ping(ctx); err != nil {
			cfg.Logger.Error("failed to ping MongoDB primary", err)
			_ = client.Disconnect(context.Background())
			return nil, err
		}
	}

	cfg.Logger.Info("MongoDB client initialized", nil)
	return m, nil
}

// Ping verifies that the primary is reachable.
func (m *MongoClient) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.client == nil {
		return ErrClientNotInitialized
	}
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("[MongoDB] ping failed: %w", err)
	}
	return nil
}

// Client returns the underlying driver client for advanced operations.
// It is nil after Close.
func (m *MongoClient) Client() *mongo.Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client
}

// Collection returns the named collection. After Close, every operation on
// the returned collection fails with ErrClientNotInitialized.
func (m *MongoClient) Collection(dbName, collectionName string) Collection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.client == nil {
		return closedCollection{namespace: dbName + "." + collectionName}
	}
	return &driverCollection{coll: m.client.Database(dbName).Collection(collectionName)}
}

// Close disconnects the client. It is safe to call more than once.
func (m *MongoClient) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}

	m.logger.Info("closing MongoDB client...", nil)
	err := m.client.Disconnect(ctx)
	m.client = nil
	if err != nil {
		m.logger.Warn("failed to disconnect MongoDB client", err)
		return fmt.Errorf("[MongoDB] failed to disconnect: %w", err)
	}
	return nil
}

// Logger returns the logger the client was configured with.
func (m *MongoClient) Logger() Logger {
	return m.logger
}

// Observer returns the observer set with WithObserver, if any.
func (m *MongoClient) Observer() observability.Observer {
	return m.observer
}

// WithObserver sets the observer for this client and returns the client for method chaining.
// Components created from this client through NewIndexer, NewRetriever and
// the tool constructors inherit it.
func (m *MongoClient) WithObserver(observer observability.Observer) *MongoClient {
	m.observer = observer
	return m
}

// WithLogger sets the logger for this client and returns the client for method chaining.
func (m *MongoClient) WithLogger(logger Logger) *MongoClient {
	if logger == nil {
		logger = nopLogger{}
	}
	m.logger = logger
	return m
}
