package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// inferenceProvider calls an OpenAI-compatible /embeddings endpoint.
type inferenceProvider struct {
	baseURL      string
	serviceToken string
	model        string
	httpClient   *http.Client
}

func newInferenceProvider(cfg *Config) (*inferenceProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("inference: missing endpoint")
	}

	timeout := cfg.HTTPTimeoutS
	if timeout == 0 {
		timeout = DefaultHTTPTimeoutSeconds
	}

	return &inferenceProvider{
		// Remove trailing slash if user added it.
		baseURL:      strings.TrimRight(cfg.Endpoint, "/"),
		serviceToken: cfg.ServiceToken,
		model:        cfg.Model,
		httpClient:   &http.Client{Timeout: time.Duration(timeout) * time.Second},
	}, nil
}

// Embed generates one embedding per text.
//
// Recognized options: "model" (string) overrides the configured model and
// "dimensions" (int) requests truncated vectors from models that support it.
func (p *inferenceProvider) Embed(ctx context.Context, texts []string, opts Options) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("inference: no texts provided")
	}

	model := p.model
	if m, ok := opts["model"].(string); ok && m != "" {
		model = m
	}
	if model == "" {
		return nil, fmt.Errorf("inference: model is required")
	}

	reqBody := map[string]any{
		"model": model,
		"input": texts,
	}
	if dims, ok := opts["dimensions"]; ok {
		reqBody["dimensions"] = dims
	}

	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/embeddings", p.baseURL)
	if err := p.postJSON(ctx, url, reqBody, &parsed); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("inference: expected %d embeddings, got %d", len(texts), len(parsed.Data))
	}

	// The API may return items out of order; index is authoritative.
	sort.SliceStable(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})

	out := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		out[i] = d.Embedding
	}
	return out, nil
}
