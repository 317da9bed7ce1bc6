package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Aleph-Alpha/mongosearch/v1/embedding"
	"github.com/Aleph-Alpha/mongosearch/v1/retry"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// RetrieveRequest describes a single retrieval. Exactly one of VectorSearch,
// Search and HybridSearch must be set, unless only Pipelines are given, in
// which case the pipelines run as a plain aggregation.
type RetrieveRequest struct {
	DBName         string `json:"dbName" validate:"required"`
	CollectionName string `json:"collectionName" validate:"required"`

	// Query is the query text; it is embedded for vector and hybrid search.
	Query string `json:"query,omitempty"`

	FieldNames

	VectorSearch *VectorSearchOptions `json:"vectorSearch,omitempty"`
	Search       *TextSearchOptions   `json:"search,omitempty"`
	HybridSearch *HybridSearchOptions `json:"hybridSearch,omitempty"`

	// Pipelines are extra aggregation stages appended after the search.
	Pipelines []Doc `json:"pipelines,omitempty"`

	// ExcludeEmbedding removes the embedding field from results.
	// Default: true
	ExcludeEmbedding *bool `json:"excludeEmbedding,omitempty"`
}

func (r RetrieveRequest) excludeEmbedding() bool {
	return r.ExcludeEmbedding == nil || *r.ExcludeEmbedding
}

// mode resolves the search mode, enforcing that at most one is set.
func (r RetrieveRequest) mode() (searchMode, error) {
	var modes []searchMode
	if r.VectorSearch != nil {
		modes = append(modes, modeVector)
	}
	if r.Search != nil {
		modes = append(modes, modeText)
	}
	if r.HybridSearch != nil {
		modes = append(modes, modeHybrid)
	}

	switch {
	case len(modes) > 1:
		return 0, ErrMultipleSearchModes
	case len(modes) == 1:
		if r.Query == "" {
			return 0, fmt.Errorf("%w: query is required for %s search", ErrInvalidRequest, modes[0])
		}
		return modes[0], nil
	case len(r.Pipelines) > 0:
		return modePipeline, nil
	default:
		return 0, ErrNoSearchMode
	}
}

// Retriever runs vector, text, hybrid or plain aggregation queries against a
// collection and returns ranked documents.
type Retriever struct {
	instrumentation

	cfg         RetrieverConfig
	policy      retry.Policy
	collections Collections
	embedder    embedding.Embedder
}

// NewRetriever validates cfg and returns a retriever. When
// cfg.EmbeddingCacheTTL is set, query embeddings are cached for that long.
func NewRetriever(collections Collections, embedder embedding.Embedder, cfg RetrieverConfig) (*Retriever, error) {
	if err := validateStruct(cfg); err != nil {
		return nil, fmt.Errorf("[MongoDB] invalid retriever config: %w", err)
	}
	if collections == nil {
		return nil, ErrClientNotInitialized
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: %q", ErrEmbedderNotFound, cfg.Embedder)
	}

	r := &Retriever{
		instrumentation: newInstrumentation("mongodb.retriever"),
		cfg:             cfg,
		policy:          cfg.Retry.Policy(),
		collections:     collections,
		embedder:        embedding.Cached(embedder, cfg.EmbeddingCacheTTL),
	}
	r.inheritFrom(collections)
	return r, nil
}

// Config returns the retriever's configuration.
func (r *Retriever) Config() RetrieverConfig {
	return r.cfg
}

// WithLogger sets the logger and returns the retriever for method chaining.
func (r *Retriever) WithLogger(logger Logger) *Retriever {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Retrieve runs the request and converts the resulting rows to documents.
// The aggregation is retried according to the retriever's policy.
func (r *Retriever) Retrieve(ctx context.Context, req RetrieveRequest) ([]Document, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	mode, err := req.mode()
	if err != nil {
		return nil, err
	}

	fields := req.FieldNames.withDefaults()
	coll := r.collections.Collection(req.DBName, req.CollectionName)

	ctx, span := r.startSpan(ctx, "retrieve", map[string]interface{}{
		"db.namespace": coll.Namespace(),
		"retriever.id": r.cfg.ID,
		"search.mode":  mode.String(),
	})

	start := time.Now()
	docs, err := r.retrieve(ctx, coll, req, mode, fields)
	r.observeOperation("retrieve", coll.Namespace(), mode.String(), time.Since(start), err, int64(len(docs)), nil)
	endSpan(span, err)
	if err != nil {
		r.logger.Error("failed to retrieve documents", err, map[string]interface{}{
			"retriever": r.cfg.ID,
			"namespace": coll.Namespace(),
			"mode":      mode.String(),
		})
		return nil, err
	}
	return docs, nil
}

func (r *Retriever) retrieve(ctx context.Context, coll Collection, req RetrieveRequest, mode searchMode, fields FieldNames) ([]Document, error) {
	var vector []float64
	if mode.needsEmbedding() {
		vectors, err := r.embedder.Embed(ctx, []string{req.Query}, r.cfg.EmbedderOptions)
		if err != nil {
			return nil, fmt.Errorf("[MongoDB] failed to embed query: %w", err)
		}
		if len(vectors) != 1 {
			return nil, fmt.Errorf("[MongoDB] embedder returned %d embeddings for one query", len(vectors))
		}
		vector = vectors[0]
	}

	pipeline := buildPipeline(req, mode, fields, vector)

	rows, err := retry.DoValue(ctx, r.policy, func(ctx context.Context) ([]bson.M, error) {
		return coll.Aggregate(ctx, pipeline)
	}, r.retryNotify("aggregate", coll.Namespace()))
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(rows))
	for i, row := range rows {
		docs[i] = fromStored(row, fields)
	}
	return docs, nil
}
