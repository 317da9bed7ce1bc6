// Package embedding provides the embedders used by the MongoDB indexer and
// retriever to turn document content and query text into vectors.
//
// # Embedder
//
// Any implementation of
//
//	Embed(ctx context.Context, texts []string, opts Options) ([][]float64, error)
//
// can be registered with the plugin under a name. EmbedderFunc adapts plain
// functions.
//
// # Client
//
// Client talks to an OpenAI-compatible /embeddings endpoint:
//
//	client, err := embedding.NewClient(&embedding.Config{
//	    Endpoint:     "https://inference.example.com/v1",
//	    ServiceToken: os.Getenv("EMBEDDING_SERVICE_TOKEN"),
//	    Model:        "text-embedding-3-small",
//	})
//	vectors, err := client.Embed(ctx, []string{"hello"}, embedding.Options{"dimensions": 512})
//
// Configuration can also be read from the environment with NewConfig:
// EMBEDDING_ENDPOINT, EMBEDDING_SERVICE_TOKEN, EMBEDDING_MODEL and
// EMBEDDING_HTTP_TIMEOUT_SECONDS (default 30).
//
// # Caching
//
// Cached wraps any embedder with a per-text TTL cache (github.com/patrickmn/go-cache):
//
//	e := embedding.Cached(client, 10*time.Minute)
package embedding
