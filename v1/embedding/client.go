package embedding

import (
	"context"
	"fmt"
)

// Client is the public entrypoint for computing embeddings. It implements
// Embedder and hides the HTTP provider behind it.
type Client struct {
	provider Embedder
}

// NewClient validates cfg and constructs the inference provider.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedding: config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("embedding: invalid config: %w", err)
	}

	p, err := newInferenceProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("embedding: failed to create provider: %w", err)
	}

	return &Client{provider: p}, nil
}

// Embed computes one embedding per text.
func (c *Client) Embed(ctx context.Context, texts []string, opts Options) ([][]float64, error) {
	return c.provider.Embed(ctx, texts, opts)
}

// Close releases provider resources, if the provider holds any.
func (c *Client) Close() error {
	if closer, ok := c.provider.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
