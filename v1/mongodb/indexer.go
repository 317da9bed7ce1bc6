package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/mongosearch/v1/embedding"
	"github.com/Aleph-Alpha/mongosearch/v1/retry"
	"golang.org/x/sync/errgroup"
)

// IndexRequest describes where and how documents are written.
type IndexRequest struct {
	DBName         string `json:"dbName" validate:"required"`
	CollectionName string `json:"collectionName" validate:"required"`

	FieldNames

	// BatchSize is the number of documents embedded and inserted together.
	// Default: 100
	BatchSize int `json:"batchSize,omitempty" validate:"gte=0"`

	// SkipData stores only the embedding and metadata, not the content.
	SkipData bool `json:"skipData,omitempty"`
}

// IndexResult reports what was written.
type IndexResult struct {
	Inserted    int   `json:"inserted"`
	InsertedIDs []any `json:"insertedIds,omitempty"`
}

// Indexer embeds documents and writes them into a collection.
type Indexer struct {
	instrumentation

	cfg         IndexerConfig
	policy      retry.Policy
	collections Collections
	embedder    embedding.Embedder
}

// NewIndexer validates cfg and returns an indexer that writes through
// collections and embeds with embedder. When collections is a *MongoClient
// the indexer reports to the client's logger and observer.
func NewIndexer(collections Collections, embedder embedding.Embedder, cfg IndexerConfig) (*Indexer, error) {
	if err := validateStruct(cfg); err != nil {
		return nil, fmt.Errorf("[MongoDB] invalid indexer config: %w", err)
	}
	if collections == nil {
		return nil, ErrClientNotInitialized
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: %q", ErrEmbedderNotFound, cfg.Embedder)
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}

	ix := &Indexer{
		instrumentation: newInstrumentation("mongodb.indexer"),
		cfg:             cfg,
		policy:          cfg.Retry.Policy(),
		collections:     collections,
		embedder:        embedder,
	}
	ix.inheritFrom(collections)
	return ix, nil
}

// Config returns the indexer's configuration with defaults applied.
func (ix *Indexer) Config() IndexerConfig {
	return ix.cfg
}

// WithLogger sets the logger and returns the indexer for method chaining.
func (ix *Indexer) WithLogger(logger Logger) *Indexer {
	if logger != nil {
		ix.logger = logger
	}
	return ix
}

// Index embeds and stores docs in batches of req.BatchSize. Each batch is
// embedded with a single call and inserted with InsertMany under the
// indexer's retry policy. Up to Concurrency batches are in flight; the first
// failure cancels the remaining ones.
func (ix *Indexer) Index(ctx context.Context, docs []Document, req IndexRequest) (*IndexResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return &IndexResult{}, nil
	}

	if req.BatchSize == 0 {
		req.BatchSize = DefaultBatchSize
	}
	fields := req.FieldNames.withDefaults()
	coll := ix.collections.Collection(req.DBName, req.CollectionName)

	ctx, span := ix.startSpan(ctx, "index", map[string]interface{}{
		"db.namespace": coll.Namespace(),
		"indexer.id":   ix.cfg.ID,
		"documents":    len(docs),
		"batch_size":   req.BatchSize,
	})

	start := time.Now()
	ids, err := ix.indexBatches(ctx, coll, docs, req.BatchSize, fields, req.SkipData)
	ix.observeOperation("index", coll.Namespace(), ix.cfg.ID, time.Since(start), err, int64(len(ids)), nil)
	endSpan(span, err)
	if err != nil {
		ix.logger.Error("failed to index documents", err, map[string]interface{}{
			"indexer":   ix.cfg.ID,
			"namespace": coll.Namespace(),
		})
		return nil, err
	}

	return &IndexResult{Inserted: len(ids), InsertedIDs: ids}, nil
}

func (ix *Indexer) indexBatches(ctx context.Context, coll Collection, docs []Document, batchSize int, fields FieldNames, skipData bool) ([]any, error) {
	batches := (len(docs) + batchSize - 1) / batchSize
	results := make([][]any, batches)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Concurrency)

	for i := 0; i < batches; i++ {
		i := i // per-iteration copy; go.mod targets go1.21 loop semantics
		lo := i * batchSize
		hi := min(lo+batchSize, len(docs))

		g.Go(func() error {
			ids, err := ix.indexBatch(gctx, coll, docs[lo:hi], fields, skipData)
			if err != nil {
				return fmt.Errorf("[MongoDB] failed to index documents %d-%d: %w", lo, hi-1, err)
			}
			results[i] = ids
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]any, 0, len(docs))
	for _, r := range results {
		ids = append(ids, r...)
	}
	return ids, nil
}

func (ix *Indexer) indexBatch(ctx context.Context, coll Collection, batch []Document, fields FieldNames, skipData bool) ([]any, error) {
	texts := make([]string, len(batch))
	for i, d := range batch {
		texts[i] = d.Content
	}

	vectors, err := ix.embedder.Embed(ctx, texts, ix.cfg.EmbedderOptions)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	if len(vectors) != len(batch) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d documents", len(vectors), len(batch))
	}

	stored := make([]any, len(batch))
	for i, d := range batch {
		stored[i] = toStored(d, vectors[i], fields, skipData)
	}

	start := time.Now()
	ids, err := retry.DoValue(ctx, ix.policy, func(ctx context.Context) ([]any, error) {
		return coll.InsertMany(ctx, stored)
	}, ix.retryNotify("insert_many", coll.Namespace()))
	ix.observeOperation("insert_many", coll.Namespace(), "", time.Since(start), err, int64(len(batch)), nil)
	if err != nil {
		return nil, err
	}

	for i, id := range ids {
		ids[i] = plain(id)
	}
	return ids, nil
}
