package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CreateDocumentRequest inserts one document.
type CreateDocumentRequest struct {
	DBName         string `json:"dbName" validate:"required"`
	CollectionName string `json:"collectionName" validate:"required"`
	Document       Doc    `json:"document" validate:"required,min=1"`
}

// CreateDocumentResult carries the id of the inserted document.
type CreateDocumentResult struct {
	ID any `json:"id"`
}

// ReadDocumentRequest reads a document by id.
type ReadDocumentRequest struct {
	DBName         string `json:"dbName" validate:"required"`
	CollectionName string `json:"collectionName" validate:"required"`
	ID             any    `json:"id" validate:"required"`
}

// ReadDocumentResult carries the document as stored.
type ReadDocumentResult struct {
	Document Doc `json:"document"`
}

// UpdateDocumentRequest updates a document by id. An update without any
// top-level "$" operator is applied as {$set: update}.
type UpdateDocumentRequest struct {
	DBName         string `json:"dbName" validate:"required"`
	CollectionName string `json:"collectionName" validate:"required"`
	ID             any    `json:"id" validate:"required"`
	Update         Doc    `json:"update" validate:"required,min=1"`
}

// UpdateDocumentResult reports how many documents matched and changed.
type UpdateDocumentResult struct {
	Matched  int64 `json:"matchedCount"`
	Modified int64 `json:"modifiedCount"`
}

// DeleteDocumentRequest deletes a document by id.
type DeleteDocumentRequest struct {
	DBName         string `json:"dbName" validate:"required"`
	CollectionName string `json:"collectionName" validate:"required"`
	ID             any    `json:"id" validate:"required"`
}

// DeleteDocumentResult reports how many documents were deleted.
type DeleteDocumentResult struct {
	Deleted int64 `json:"deletedCount"`
}

// CRUDTools performs single-document operations by id. Calls are not retried.
type CRUDTools struct {
	instrumentation

	cfg         ToolsConfig
	collections Collections
}

// NewCRUDTools returns the CRUD tool set for collections.
func NewCRUDTools(collections Collections, cfg ToolsConfig) (*CRUDTools, error) {
	if err := validateStruct(cfg); err != nil {
		return nil, fmt.Errorf("[MongoDB] invalid tools config: %w", err)
	}
	if collections == nil {
		return nil, ErrClientNotInitialized
	}

	t := &CRUDTools{
		instrumentation: newInstrumentation("mongodb.crud"),
		cfg:             cfg,
		collections:     collections,
	}
	t.inheritFrom(collections)
	return t, nil
}

// Config returns the tool set's configuration.
func (t *CRUDTools) Config() ToolsConfig {
	return t.cfg
}

// Create inserts req.Document and returns its id.
func (t *CRUDTools) Create(ctx context.Context, req CreateDocumentRequest) (*CreateDocumentResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	coll := t.collections.Collection(req.DBName, req.CollectionName)

	id, err := t.run(ctx, "insert_one", coll, func(ctx context.Context) (any, error) {
		return coll.InsertOne(ctx, bson.D(req.Document))
	})
	if err != nil {
		return nil, fmt.Errorf("[MongoDB] failed to create document: %w", err)
	}
	return &CreateDocumentResult{ID: plain(id)}, nil
}

// Read returns the document with req.ID or an error satisfying IsNotFound.
func (t *CRUDTools) Read(ctx context.Context, req ReadDocumentRequest) (*ReadDocumentResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	coll := t.collections.Collection(req.DBName, req.CollectionName)

	doc, err := t.run(ctx, "find_one", coll, func(ctx context.Context) (any, error) {
		return coll.FindOne(ctx, idFilter(req.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("[MongoDB] failed to read document %v: %w", req.ID, err)
	}
	return &ReadDocumentResult{Document: Doc(doc.(bson.D))}, nil
}

// Update applies req.Update to the document with req.ID.
func (t *CRUDTools) Update(ctx context.Context, req UpdateDocumentRequest) (*UpdateDocumentResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	coll := t.collections.Collection(req.DBName, req.CollectionName)
	update := updateDocument(bson.D(req.Update))

	var res UpdateDocumentResult
	_, err := t.run(ctx, "update_one", coll, func(ctx context.Context) (any, error) {
		var err error
		res.Matched, res.Modified, err = coll.UpdateOne(ctx, idFilter(req.ID), update)
		return nil, err
	})
	if err != nil {
		return nil, fmt.Errorf("[MongoDB] failed to update document %v: %w", req.ID, err)
	}
	return &res, nil
}

// Delete removes the document with req.ID.
func (t *CRUDTools) Delete(ctx context.Context, req DeleteDocumentRequest) (*DeleteDocumentResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	coll := t.collections.Collection(req.DBName, req.CollectionName)

	var res DeleteDocumentResult
	_, err := t.run(ctx, "delete_one", coll, func(ctx context.Context) (any, error) {
		var err error
		res.Deleted, err = coll.DeleteOne(ctx, idFilter(req.ID))
		return nil, err
	})
	if err != nil {
		return nil, fmt.Errorf("[MongoDB] failed to delete document %v: %w", req.ID, err)
	}
	return &res, nil
}

// updateDocument wraps plain field updates in $set.
func updateDocument(update bson.D) bson.D {
	for _, e := range update {
		if strings.HasPrefix(e.Key, "$") {
			return update
		}
	}
	return bson.D{{Key: "$set", Value: update}}
}

// run traces and observes a single driver call.
func (in *instrumentation) run(ctx context.Context, operation string, coll Collection, fn func(ctx context.Context) (any, error)) (any, error) {
	ctx, span := in.startSpan(ctx, operation, map[string]interface{}{
		"db.namespace": coll.Namespace(),
	})

	start := time.Now()
	out, err := fn(ctx)
	in.observeOperation(operation, coll.Namespace(), "", time.Since(start), err, 0, nil)
	endSpan(span, err)
	if err != nil && !IsNotFound(err) {
		in.logger.Error("MongoDB operation failed", err, map[string]interface{}{
			"component": in.component,
			"operation": operation,
			"namespace": coll.Namespace(),
		})
	}
	return out, err
}
