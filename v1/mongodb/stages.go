package mongodb

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// VectorSearchOptions configures a $vectorSearch stage.
type VectorSearchOptions struct {
	// Index is the name of the vector search index.
	Index string `json:"index" validate:"required"`

	// Path is the embedding field. Default: the request's embedding field
	Path string `json:"path,omitempty"`

	// NumCandidates is the number of nearest neighbours considered.
	// Default: 10 * Limit. Ignored for exact search.
	NumCandidates int `json:"numCandidates,omitempty" validate:"gte=0"`

	// Limit is the number of documents returned. Default: 10
	Limit int `json:"limit,omitempty" validate:"gte=0"`

	// Exact runs an exhaustive (ENN) search.
	Exact bool `json:"exact,omitempty"`

	// Filter is a pre-filter on indexed filter fields, passed through as is.
	Filter Doc `json:"filter,omitempty"`
}

// FuzzyOptions enables typo tolerance for text search.
type FuzzyOptions struct {
	MaxEdits      int `json:"maxEdits,omitempty" validate:"gte=0,lte=2"`
	PrefixLength  int `json:"prefixLength,omitempty" validate:"gte=0"`
	MaxExpansions int `json:"maxExpansions,omitempty" validate:"gte=0"`
}

// TextSearchOptions configures a $search text stage.
type TextSearchOptions struct {
	// Index is the name of the search index. Default: "default"
	Index string `json:"index,omitempty"`

	// Path is the field or fields to search.
	Path StringList `json:"path" validate:"required,min=1"`

	Fuzzy *FuzzyOptions `json:"fuzzy,omitempty"`

	// Limit is the number of documents returned. Default: 10
	Limit int `json:"limit,omitempty" validate:"gte=0"`
}

// HybridWeights weighs the two pipelines of a rank fusion.
type HybridWeights struct {
	Vector   float64 `json:"vectorPipeline" validate:"gte=0"`
	FullText float64 `json:"fullTextPipeline" validate:"gte=0"`
}

// HybridSearchOptions configures a $rankFusion of a vector and a text search.
type HybridSearchOptions struct {
	VectorSearch VectorSearchOptions `json:"vectorSearch"`
	Search       TextSearchOptions   `json:"search"`

	// Weights default to 1 for both pipelines.
	Weights *HybridWeights `json:"weights,omitempty"`

	// ScoreDetails adds the per-pipeline ranks to every result.
	ScoreDetails bool `json:"scoreDetails,omitempty"`

	// Limit is the number of fused documents returned. Default: 10
	Limit int `json:"limit,omitempty" validate:"gte=0"`
}

func limitOrDefault(limit int) int {
	if limit > 0 {
		return limit
	}
	return DefaultSearchLimit
}

// vectorSearchStage builds {$vectorSearch: {...}}.
func vectorSearchStage(opts VectorSearchOptions, defaultPath string, vector []float64) bson.D {
	path := opts.Path
	if path == "" {
		path = defaultPath
	}
	limit := limitOrDefault(opts.Limit)

	body := bson.D{
		{Key: "index", Value: opts.Index},
		{Key: "path", Value: path},
		{Key: "queryVector", Value: vector},
	}
	if opts.Exact {
		body = append(body, bson.E{Key: "exact", Value: true})
	} else {
		candidates := opts.NumCandidates
		if candidates == 0 {
			candidates = DefaultCandidateFactor * limit
		}
		body = append(body, bson.E{Key: "numCandidates", Value: candidates})
	}
	body = append(body, bson.E{Key: "limit", Value: limit})
	if len(opts.Filter) > 0 {
		body = append(body, bson.E{Key: "filter", Value: bson.D(opts.Filter)})
	}

	return bson.D{{Key: "$vectorSearch", Value: body}}
}

// textSearchStage builds {$search: {index, text: {query, path, fuzzy}}}.
func textSearchStage(opts TextSearchOptions, query string) bson.D {
	index := opts.Index
	if index == "" {
		index = DefaultTextSearchIndex
	}

	text := bson.D{
		{Key: "query", Value: query},
		{Key: "path", Value: opts.Path.value()},
	}
	if opts.Fuzzy != nil {
		fuzzy := bson.D{}
		if opts.Fuzzy.MaxEdits > 0 {
			fuzzy = append(fuzzy, bson.E{Key: "maxEdits", Value: opts.Fuzzy.MaxEdits})
		}
		if opts.Fuzzy.PrefixLength > 0 {
			fuzzy = append(fuzzy, bson.E{Key: "prefixLength", Value: opts.Fuzzy.PrefixLength})
		}
		if opts.Fuzzy.MaxExpansions > 0 {
			fuzzy = append(fuzzy, bson.E{Key: "maxExpansions", Value: opts.Fuzzy.MaxExpansions})
		}
		text = append(text, bson.E{Key: "fuzzy", Value: fuzzy})
	}

	return bson.D{{Key: "$search", Value: bson.D{
		{Key: "index", Value: index},
		{Key: "text", Value: text},
	}}}
}

func limitStage(limit int) bson.D {
	return bson.D{{Key: "$limit", Value: limit}}
}

// rankFusionStage builds a $rankFusion over a vector and a text pipeline.
func rankFusionStage(opts HybridSearchOptions, defaultPath, query string, vector []float64) bson.D {
	weights := HybridWeights{Vector: DefaultHybridWeight, FullText: DefaultHybridWeight}
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	vectorPipeline := bson.A{vectorSearchStage(opts.VectorSearch, defaultPath, vector)}
	fullTextPipeline := bson.A{
		textSearchStage(opts.Search, query),
		limitStage(limitOrDefault(opts.Search.Limit)),
	}

	return bson.D{{Key: "$rankFusion", Value: bson.D{
		{Key: "input", Value: bson.D{
			{Key: "pipelines", Value: bson.D{
				{Key: "vectorPipeline", Value: vectorPipeline},
				{Key: "fullTextPipeline", Value: fullTextPipeline},
			}},
		}},
		{Key: "combination", Value: bson.D{
			{Key: "weights", Value: bson.D{
				{Key: "vectorPipeline", Value: weights.Vector},
				{Key: "fullTextPipeline", Value: weights.FullText},
			}},
		}},
		{Key: "scoreDetails", Value: opts.ScoreDetails},
	}}}
}

// scoreStage copies the search score (and optionally the score details)
// into regular fields.
func scoreStage(meta string, withDetails bool) bson.D {
	fields := bson.D{{Key: scoreField, Value: bson.D{{Key: "$meta", Value: meta}}}}
	if withDetails {
		fields = append(fields, bson.E{Key: scoreDetailsField, Value: bson.D{{Key: "$meta", Value: "scoreDetails"}}})
	}
	return bson.D{{Key: "$addFields", Value: fields}}
}

func excludeStage(field string) bson.D {
	return bson.D{{Key: "$project", Value: bson.D{{Key: field, Value: 0}}}}
}

// searchMode is the kind of retrieval a request asks for.
type searchMode int

const (
	modePipeline searchMode = iota
	modeVector
	modeText
	modeHybrid
)

func (m searchMode) String() string {
	switch m {
	case modeVector:
		return "vector"
	case modeText:
		return "text"
	case modeHybrid:
		return "hybrid"
	default:
		return "pipeline"
	}
}

// needsEmbedding reports whether the mode embeds the query.
func (m searchMode) needsEmbedding() bool {
	return m == modeVector || m == modeHybrid
}

// buildPipeline assembles the aggregation for a validated request. vector is
// nil for modes that do not embed the query.
func buildPipeline(req RetrieveRequest, mode searchMode, fields FieldNames, vector []float64) mongo.Pipeline {
	var pipeline mongo.Pipeline

	switch mode {
	case modeVector:
		pipeline = append(pipeline,
			vectorSearchStage(*req.VectorSearch, fields.EmbeddingField, vector),
			scoreStage("vectorSearchScore", false),
		)
	case modeText:
		pipeline = append(pipeline,
			textSearchStage(*req.Search, req.Query),
			limitStage(limitOrDefault(req.Search.Limit)),
			scoreStage("searchScore", false),
		)
	case modeHybrid:
		pipeline = append(pipeline,
			rankFusionStage(*req.HybridSearch, fields.EmbeddingField, req.Query, vector),
			limitStage(limitOrDefault(req.HybridSearch.Limit)),
			scoreStage("score", req.HybridSearch.ScoreDetails),
		)
	}

	for _, stage := range req.Pipelines {
		pipeline = append(pipeline, bson.D(stage))
	}

	if req.excludeEmbedding() {
		pipeline = append(pipeline, excludeStage(fields.EmbeddingField))
	}
	return pipeline
}
