package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Aleph-Alpha/mongosearch/v1/embedding"
	"github.com/Aleph-Alpha/mongosearch/v1/mongodb"
	"github.com/Aleph-Alpha/mongosearch/v1/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// fakeClient serves a single in-memory collection.
type fakeClient struct {
	mu      sync.Mutex
	cfg     mongodb.Config
	rows    []bson.M
	found   bson.D
	closed  bool
	queries []mongo.Pipeline
	docs    []any
}

func (c *fakeClient) Collection(dbName, collectionName string) mongodb.Collection {
	return &fakeCollection{client: c, ns: dbName + "." + collectionName}
}

func (c *fakeClient) Close(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeCollection struct {
	client *fakeClient
	ns     string
}

func (f *fakeCollection) Namespace() string { return f.ns }

func (f *fakeCollection) InsertMany(_ context.Context, docs []any) ([]any, error) {
	f.client.mu.Lock()
	defer f.client.mu.Unlock()
	f.client.docs = append(f.client.docs, docs...)
	ids := make([]any, len(docs))
	for i := range docs {
		ids[i] = i
	}
	return ids, nil
}

func (f *fakeCollection) InsertOne(context.Context, any) (any, error) { return "new-id", nil }

func (f *fakeCollection) FindOne(context.Context, any) (bson.D, error) {
	if f.client.found == nil {
		return nil, mongodb.ErrNotFound
	}
	return f.client.found, nil
}

func (f *fakeCollection) UpdateOne(context.Context, any, any) (int64, int64, error) {
	return 1, 1, nil
}

func (f *fakeCollection) DeleteOne(context.Context, any) (int64, error) { return 1, nil }

func (f *fakeCollection) Aggregate(_ context.Context, p mongo.Pipeline) ([]bson.M, error) {
	f.client.mu.Lock()
	defer f.client.mu.Unlock()
	f.client.queries = append(f.client.queries, p)
	return f.client.rows, nil
}

func (f *fakeCollection) CreateSearchIndex(_ context.Context, m mongodb.SearchIndexModel) (string, error) {
	return m.Name, nil
}

func (f *fakeCollection) ListSearchIndexes(context.Context, string) ([]bson.D, error) {
	return nil, nil
}

func (f *fakeCollection) DropSearchIndex(context.Context, string) error { return nil }

var constantEmbedder = embedding.EmbedderFunc(func(_ context.Context, texts []string, _ embedding.Options) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = []float64{1, 0}
	}
	return out, nil
})

// fakeFactory records every client it creates.
type fakeFactory struct {
	clients []*fakeClient
	fail    map[string]error
}

func (f *fakeFactory) create(cfg mongodb.Config) (Client, error) {
	if err := f.fail[cfg.URI]; err != nil {
		return nil, err
	}
	c := &fakeClient{cfg: cfg}
	f.clients = append(f.clients, c)
	return c, nil
}

func testConfig() Config {
	return Config{
		Connections: []ConnectionConfig{{
			Name:             "main",
			Mongo:            mongodb.Config{URI: "mongodb://main"},
			Indexers:         []mongodb.IndexerConfig{{ID: "docs", Embedder: "test"}},
			Retrievers:       []mongodb.RetrieverConfig{{ID: "docs", Embedder: "test"}},
			CRUDTools:        &mongodb.ToolsConfig{ID: "docs-crud"},
			SearchIndexTools: &mongodb.ToolsConfig{ID: "docs-indexes"},
		}},
	}
}

func TestNewRegistersActions(t *testing.T) {
	factory := &fakeFactory{}
	p, err := New(testConfig(), WithEmbedder("test", constantEmbedder), WithClientFactory(factory.create))
	require.NoError(t, err)

	var names []string
	for _, a := range p.Registry().List() {
		names = append(names, a.Key.String())
	}
	assert.Equal(t, []string{
		"indexer:mongodb/docs",
		"retriever:mongodb/docs",
		"tool:mongodb/docs-crud/create",
		"tool:mongodb/docs-crud/delete",
		"tool:mongodb/docs-crud/read",
		"tool:mongodb/docs-crud/update",
		"tool:mongodb/docs-indexes/createSearchIndex",
		"tool:mongodb/docs-indexes/dropSearchIndex",
		"tool:mongodb/docs-indexes/listSearchIndexes",
	}, names)

	_, ok := p.Indexer("docs")
	assert.True(t, ok)
	_, ok = p.Retriever("docs")
	assert.True(t, ok)

	require.Len(t, factory.clients, 1)
	assert.NotNil(t, factory.clients[0].cfg.Logger)

	require.NoError(t, p.Close(context.Background()))
	assert.True(t, factory.clients[0].closed)
}

func TestNewFailsOnDuplicateIDs(t *testing.T) {
	cfg := testConfig()
	cfg.Connections = append(cfg.Connections, ConnectionConfig{
		Name:       "replica",
		Mongo:      mongodb.Config{URI: "mongodb://replica"},
		Retrievers: []mongodb.RetrieverConfig{{ID: "docs", Embedder: "test"}},
	})

	factory := &fakeFactory{}
	_, err := New(cfg, WithEmbedder("test", constantEmbedder), WithClientFactory(factory.create))
	assert.ErrorIs(t, err, registry.ErrDuplicateAction)

	require.Len(t, factory.clients, 2)
	for _, c := range factory.clients {
		assert.True(t, c.closed)
	}
}

func TestNewFailsOnUnknownEmbedder(t *testing.T) {
	factory := &fakeFactory{}
	_, err := New(testConfig(), WithClientFactory(factory.create))
	assert.ErrorIs(t, err, mongodb.ErrEmbedderNotFound)
	assert.True(t, factory.clients[0].closed)
}

func TestNewFailsWhenConnectionFails(t *testing.T) {
	boom := errors.New("no reachable servers")
	factory := &fakeFactory{fail: map[string]error{"mongodb://main": boom}}

	_, err := New(testConfig(), WithEmbedder("test", constantEmbedder), WithClientFactory(factory.create))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `connection "main"`)
}

func TestNewRejectsDuplicateConnectionNames(t *testing.T) {
	cfg := Config{Connections: []ConnectionConfig{
		{Name: "a", Mongo: mongodb.Config{URI: "mongodb://a"}},
		{Name: "a", Mongo: mongodb.Config{URI: "mongodb://b"}},
	}}
	_, err := New(cfg, WithClientFactory((&fakeFactory{}).create))
	assert.ErrorContains(t, err, "duplicate connection name")
}

func TestRunRetrieverAction(t *testing.T) {
	factory := &fakeFactory{}
	p, err := New(testConfig(), WithEmbedder("test", constantEmbedder), WithClientFactory(factory.create))
	require.NoError(t, err)
	defer p.Close(context.Background())

	factory.clients[0].rows = []bson.M{{"data": "hello", "score": 0.5}}

	out, err := p.Registry().Run(context.Background(),
		registry.Key{Kind: registry.KindRetriever, Name: "mongodb/docs"},
		json.RawMessage(`{"dbName": "db", "collectionName": "docs", "query": "hi", "vectorSearch": {"index": "v"}}`))
	require.NoError(t, err)

	res := out.(*RetrieveOutput)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "hello", res.Documents[0].Content)
	assert.Equal(t, 0.5, res.Documents[0].Score)
}

func TestRunIndexerAndToolActions(t *testing.T) {
	factory := &fakeFactory{}
	p, err := New(testConfig(), WithEmbedder("test", constantEmbedder), WithClientFactory(factory.create))
	require.NoError(t, err)
	defer p.Close(context.Background())
	ctx := context.Background()

	out, err := p.Registry().Run(ctx,
		registry.Key{Kind: registry.KindIndexer, Name: "mongodb/docs"},
		json.RawMessage(`{"documents": [{"content": "a"}, {"content": "b"}], "options": {"dbName": "db", "collectionName": "docs"}}`))
	require.NoError(t, err)
	assert.Equal(t, 2, out.(*mongodb.IndexResult).Inserted)
	assert.Len(t, factory.clients[0].docs, 2)

	_, err = p.Registry().Run(ctx,
		registry.Key{Kind: registry.KindTool, Name: "mongodb/docs-crud/read"},
		json.RawMessage(`{"dbName": "db", "collectionName": "docs", "id": "x"}`))
	assert.True(t, mongodb.IsNotFound(err))

	_, err = p.Registry().Run(ctx,
		registry.Key{Kind: registry.KindTool, Name: "mongodb/docs-crud/update"},
		json.RawMessage(`{"collectionName": "docs", "id": "x", "update": {"a": 1}}`))
	assert.True(t, mongodb.IsInvalidRequest(err))

	out, err = p.Registry().Run(ctx,
		registry.Key{Kind: registry.KindTool, Name: "mongodb/docs-indexes/createSearchIndex"},
		json.RawMessage(`{"dbName": "db", "collectionName": "docs", "name": "default", "definition": {"mappings": {"dynamic": true}}}`))
	require.NoError(t, err)
	assert.Equal(t, "default", out.(*mongodb.CreateSearchIndexResult).Name)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MONGOSEARCH_TEST_URI=mongodb://from-env:27017\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MONGOSEARCH_TEST_URI") })

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedders:
  local:
    endpoint: http://localhost:8080/v1
    model: nomic-embed-text
connections:
  - name: main
    mongo:
      uri: ${MONGOSEARCH_TEST_URI}
      connect_timeout: 5s
    retrievers:
      - id: docs
        embedder: local
        embedding_cache_ttl: 1m
        retry:
          retry_attempts: 3
          base_delay: 0
    crud_tools:
      id: docs-crud
`), 0o600))

	cfg, err := LoadConfig(path, envFile)
	require.NoError(t, err)

	require.Len(t, cfg.Connections, 1)
	conn := cfg.Connections[0]
	assert.Equal(t, "mongodb://from-env:27017", conn.Mongo.URI)
	assert.Equal(t, 5*time.Second, conn.Mongo.ConnectTimeout)
	assert.Equal(t, "docs-crud", conn.CRUDTools.ID)
	assert.Nil(t, conn.SearchIndexTools)

	require.Len(t, conn.Retrievers, 1)
	r := conn.Retrievers[0]
	assert.Equal(t, time.Minute, r.EmbeddingCacheTTL)
	policy := r.Retry.Policy()
	assert.Equal(t, 3, policy.RetryAttempts)
	assert.Zero(t, policy.BaseDelay)

	assert.Equal(t, "nomic-embed-text", cfg.Embedders["local"].Model)
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connections:\n  - name: a\n    mongo: {uri: x}\n    indexer: []\n"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("connections:\n  - name: a\n"), 0o600))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "URI")
}

func TestExpandEnvKeepsBareDollar(t *testing.T) {
	t.Setenv("MONGOSEARCH_TEST_USER", "alice")
	got := expandEnv([]byte("user: ${MONGOSEARCH_TEST_USER}, op: $match, missing: ${MONGOSEARCH_TEST_UNSET}"))
	assert.Equal(t, "user: alice, op: $match, missing: ", string(got))
}
