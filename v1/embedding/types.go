package embedding

import "context"

//go:generate mockgen -source=types.go -destination=mock_types.go -package=embedding

// Options are provider-specific embedding options, e.g. {"model": "...",
// "dimensions": 512}. They are passed through from indexer and retriever
// configuration untouched.
type Options map[string]any

// Embedder turns texts into dense vectors. Implementations return exactly one
// vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string, opts Options) ([][]float64, error)
}

// EmbedderFunc adapts an ordinary function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, texts []string, opts Options) ([][]float64, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, texts []string, opts Options) ([][]float64, error) {
	return f(ctx, texts, opts)
}
