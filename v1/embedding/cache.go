package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedEmbedder memoizes embeddings per (options, text) for a TTL. The
// retriever uses it so repeated queries skip the embedding round trip.
type CachedEmbedder struct {
	next  Embedder
	cache *gocache.Cache
}

// Cached wraps next with a TTL cache. A non-positive ttl returns next as is.
func Cached(next Embedder, ttl time.Duration) Embedder {
	if ttl <= 0 {
		return next
	}
	return &CachedEmbedder{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// Embed returns cached vectors where available and embeds the remaining
// texts in a single call to the wrapped embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string, opts Options) ([][]float64, error) {
	prefix, err := optionsKey(opts)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(texts))
	var (
		missing    []string
		missingIdx []int
	)
	for i, text := range texts {
		if v, ok := c.cache.Get(prefix + text); ok {
			out[i] = v.([]float64)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.next.Embed(ctx, missing, opts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("embedding: expected %d embeddings, got %d", len(missing), len(vectors))
	}

	for j, v := range vectors {
		out[missingIdx[j]] = v
		c.cache.SetDefault(prefix+missing[j], v)
	}
	return out, nil
}

func optionsKey(opts Options) (string, error) {
	if len(opts) == 0 {
		return "\x00", nil
	}
	// encoding/json sorts map keys, so equal options give equal keys.
	b, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("embedding: options are not cacheable: %w", err)
	}
	return string(b) + "\x00", nil
}
