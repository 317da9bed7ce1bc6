package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Collection is the subset of collection operations the indexer, retriever
// and tools need. It is implemented by the driver-backed collections handed
// out by MongoClient and by in-memory fakes in tests.
type Collection interface {
	// Namespace returns "<database>.<collection>".
	Namespace() string

	InsertMany(ctx context.Context, docs []any) ([]any, error)
	InsertOne(ctx context.Context, doc any) (any, error)

	// FindOne returns ErrNotFound when no document matches.
	FindOne(ctx context.Context, filter any) (bson.D, error)
	UpdateOne(ctx context.Context, filter, update any) (matched, modified int64, err error)
	DeleteOne(ctx context.Context, filter any) (int64, error)
	Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error)

	CreateSearchIndex(ctx context.Context, model SearchIndexModel) (string, error)
	// ListSearchIndexes lists all search indexes, or only the named one.
	ListSearchIndexes(ctx context.Context, name string) ([]bson.D, error)
	DropSearchIndex(ctx context.Context, name string) error
}

// Collections hands out collections by database and collection name.
// *MongoClient implements it.
type Collections interface {
	Collection(dbName, collectionName string) Collection
}

// SearchIndexModel describes an Atlas Search or Vector Search index.
type SearchIndexModel struct {
	Name string
	// Type is "search" or "vectorSearch".
	Type       string
	Definition any
}

// driverCollection adapts *mongo.Collection to Collection.
type driverCollection struct {
	coll *mongo.Collection
}

func (c *driverCollection) Namespace() string {
	return c.coll.Database().Name() + "." + c.coll.Name()
}

func (c *driverCollection) InsertMany(ctx context.Context, docs []any) ([]any, error) {
	res, err := c.coll.InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	return res.InsertedIDs, nil
}

func (c *driverCollection) InsertOne(ctx context.Context, doc any) (any, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (c *driverCollection) FindOne(ctx context.Context, filter any) (bson.D, error) {
	var doc bson.D
	if err := c.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (c *driverCollection) UpdateOne(ctx context.Context, filter, update any) (int64, int64, error) {
	res, err := c.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, 0, err
	}
	return res.MatchedCount, res.ModifiedCount, nil
}

func (c *driverCollection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *driverCollection) Aggregate(ctx context.Context, pipeline mongo.Pipeline) ([]bson.M, error) {
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}

	var rows []bson.M
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *driverCollection) CreateSearchIndex(ctx context.Context, model SearchIndexModel) (string, error) {
	opts := options.SearchIndexes().SetName(model.Name)
	if model.Type != "" {
		opts.SetType(model.Type)
	}

	return c.coll.SearchIndexes().CreateOne(ctx, mongo.SearchIndexModel{
		Definition: model.Definition,
		Options:    opts,
	})
}

func (c *driverCollection) ListSearchIndexes(ctx context.Context, name string) ([]bson.D, error) {
	opts := options.SearchIndexes()
	if name != "" {
		opts.SetName(name)
	}

	cur, err := c.coll.SearchIndexes().List(ctx, opts)
	if err != nil {
		return nil, err
	}

	var indexes []bson.D
	if err := cur.All(ctx, &indexes); err != nil {
		return nil, err
	}
	return indexes, nil
}

func (c *driverCollection) DropSearchIndex(ctx context.Context, name string) error {
	return c.coll.SearchIndexes().DropOne(ctx, name)
}

// closedCollection is handed out by a closed MongoClient.
type closedCollection struct {
	namespace string
}

func (c closedCollection) Namespace() string { return c.namespace }

func (closedCollection) InsertMany(context.Context, []any) ([]any, error) {
	return nil, ErrClientNotInitialized
}

func (closedCollection) InsertOne(context.Context, any) (any, error) {
	return nil, ErrClientNotInitialized
}

func (closedCollection) FindOne(context.Context, any) (bson.D, error) {
	return nil, ErrClientNotInitialized
}

func (closedCollection) UpdateOne(context.Context, any, any) (int64, int64, error) {
	return 0, 0, ErrClientNotInitialized
}

func (closedCollection) DeleteOne(context.Context, any) (int64, error) {
	return 0, ErrClientNotInitialized
}

func (closedCollection) Aggregate(context.Context, mongo.Pipeline) ([]bson.M, error) {
	return nil, ErrClientNotInitialized
}

func (closedCollection) CreateSearchIndex(context.Context, SearchIndexModel) (string, error) {
	return "", ErrClientNotInitialized
}

func (closedCollection) ListSearchIndexes(context.Context, string) ([]bson.D, error) {
	return nil, ErrClientNotInitialized
}

func (closedCollection) DropSearchIndex(context.Context, string) error {
	return ErrClientNotInitialized
}
