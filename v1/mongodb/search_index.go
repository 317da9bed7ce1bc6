package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CreateSearchIndexRequest creates an Atlas Search or Vector Search index.
type CreateSearchIndexRequest struct {
	DBName         string `json:"dbName" validate:"required"`
	CollectionName string `json:"collectionName" validate:"required"`
	Name           string `json:"name" validate:"required"`

	// Type is "search" (default) or "vectorSearch".
	Type string `json:"type,omitempty" validate:"omitempty,oneof=search vectorSearch"`

	// Definition is the index definition, passed through as is.
	Definition Doc `json:"definition" validate:"required,min=1"`
}

// CreateSearchIndexResult carries the name of the created index.
type CreateSearchIndexResult struct {
	Name string `json:"name"`
}

// ListSearchIndexesRequest lists the search indexes of a collection,
// optionally only the one called Name.
type ListSearchIndexesRequest struct {
	DBName         string `json:"dbName" validate:"required"`
	CollectionName string `json:"collectionName" validate:"required"`
	Name           string `json:"name,omitempty"`
}

// ListSearchIndexesResult carries the index descriptions as returned by the
// server.
type ListSearchIndexesResult struct {
	Indexes []Doc `json:"indexes"`
}

// DropSearchIndexRequest drops a search index by name.
type DropSearchIndexRequest struct {
	DBName         string `json:"dbName" validate:"required"`
	CollectionName string `json:"collectionName" validate:"required"`
	Name           string `json:"name" validate:"required"`
}

// DropSearchIndexResult confirms the dropped index.
type DropSearchIndexResult struct {
	Name    string `json:"name"`
	Dropped bool   `json:"dropped"`
}

// SearchIndexTools manages Atlas Search and Vector Search indexes.
// Calls are not retried.
type SearchIndexTools struct {
	instrumentation

	cfg         ToolsConfig
	collections Collections
}

// NewSearchIndexTools returns the search index tool set for collections.
func NewSearchIndexTools(collections Collections, cfg ToolsConfig) (*SearchIndexTools, error) {
	if err := validateStruct(cfg); err != nil {
		return nil, fmt.Errorf("[MongoDB] invalid tools config: %w", err)
	}
	if collections == nil {
		return nil, ErrClientNotInitialized
	}

	t := &SearchIndexTools{
		instrumentation: newInstrumentation("mongodb.search_index"),
		cfg:             cfg,
		collections:     collections,
	}
	t.inheritFrom(collections)
	return t, nil
}

// Config returns the tool set's configuration.
func (t *SearchIndexTools) Config() ToolsConfig {
	return t.cfg
}

// Create creates the index. Index builds are asynchronous on the server;
// the index is queryable once List reports it as READY.
func (t *SearchIndexTools) Create(ctx context.Context, req CreateSearchIndexRequest) (*CreateSearchIndexResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	coll := t.collections.Collection(req.DBName, req.CollectionName)

	typ := req.Type
	if typ == "" {
		typ = "search"
	}

	name, err := t.run(ctx, "create_search_index", coll, func(ctx context.Context) (any, error) {
		return coll.CreateSearchIndex(ctx, SearchIndexModel{
			Name:       req.Name,
			Type:       typ,
			Definition: bson.D(req.Definition),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("[MongoDB] failed to create search index %q: %w", req.Name, err)
	}
	return &CreateSearchIndexResult{Name: name.(string)}, nil
}

// List returns the index descriptions.
func (t *SearchIndexTools) List(ctx context.Context, req ListSearchIndexesRequest) (*ListSearchIndexesResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	coll := t.collections.Collection(req.DBName, req.CollectionName)

	out, err := t.run(ctx, "list_search_indexes", coll, func(ctx context.Context) (any, error) {
		return coll.ListSearchIndexes(ctx, req.Name)
	})
	if err != nil {
		return nil, fmt.Errorf("[MongoDB] failed to list search indexes: %w", err)
	}

	raw := out.([]bson.D)
	indexes := make([]Doc, len(raw))
	for i, d := range raw {
		indexes[i] = Doc(d)
	}
	return &ListSearchIndexesResult{Indexes: indexes}, nil
}

// Drop drops the named index.
func (t *SearchIndexTools) Drop(ctx context.Context, req DropSearchIndexRequest) (*DropSearchIndexResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	coll := t.collections.Collection(req.DBName, req.CollectionName)

	_, err := t.run(ctx, "drop_search_index", coll, func(ctx context.Context) (any, error) {
		return nil, coll.DropSearchIndex(ctx, req.Name)
	})
	if err != nil {
		return nil, fmt.Errorf("[MongoDB] failed to drop search index %q: %w", req.Name, err)
	}
	return &DropSearchIndexResult{Name: req.Name, Dropped: true}, nil
}
