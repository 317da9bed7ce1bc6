package mongodb

import (
	"context"
	"fmt"
	"hash/fnv"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Aleph-Alpha/mongosearch/v1/embedding"
	"github.com/Aleph-Alpha/mongosearch/v1/logger"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

const atlasLocalImage = "mongodb/mongodb-atlas-local:8.0"

// wordEmbedder maps every text to a small bag-of-words vector, so texts that
// share words are close.
var wordEmbedder = embedding.EmbedderFunc(func(_ context.Context, texts []string, _ embedding.Options) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v := make([]float64, 8)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(w))
			v[h.Sum32()%8]++
		}
		v[7] += 0.01
		out[i] = v
	}
	return out, nil
})

// TestMongoIntegration runs the components against MongoDB Atlas Local,
// which supports Atlas Search and Vector Search indexes.
func TestMongoIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	uri, containerInstance := initializeMongo(ctx, t)
	defer func() {
		if err := containerInstance.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}()

	var client *MongoClient

	app := fxtest.New(t,
		logger.FXModule,
		FXModule,
		fx.Provide(
			func() logger.Config { return logger.Config{Level: logger.Debug, ServiceName: "mongodb-test"} },
			func(l *logger.Logger) Logger { return l },
			func() Config { return Config{URI: uri, AppName: "mongosearch-test"} },
		),
		fx.Populate(&client),
	)
	app.RequireStart()
	defer app.RequireStop()

	const dbName = "it"
	const collName = "docs"

	crud, err := NewCRUDTools(client, ToolsConfig{ID: "crud"})
	require.NoError(t, err)
	indexes, err := NewSearchIndexTools(client, ToolsConfig{ID: "indexes"})
	require.NoError(t, err)

	t.Run("CRUD by id", func(t *testing.T) {
		created, err := crud.Create(ctx, CreateDocumentRequest{
			DBName:         dbName,
			CollectionName: "crud",
			Document:       Doc{{Key: "title", Value: "first"}},
		})
		require.NoError(t, err)

		read, err := crud.Read(ctx, ReadDocumentRequest{DBName: dbName, CollectionName: "crud", ID: created.ID})
		require.NoError(t, err)
		assert.Contains(t, bson.D(read.Document), bson.E{Key: "title", Value: "first"})

		updated, err := crud.Update(ctx, UpdateDocumentRequest{
			DBName:         dbName,
			CollectionName: "crud",
			ID:             created.ID,
			Update:         Doc{{Key: "title", Value: "second"}},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated.Modified)

		deleted, err := crud.Delete(ctx, DeleteDocumentRequest{DBName: dbName, CollectionName: "crud", ID: created.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted.Deleted)

		_, err = crud.Read(ctx, ReadDocumentRequest{DBName: dbName, CollectionName: "crud", ID: created.ID})
		assert.True(t, IsNotFound(err))
	})

	ix, err := NewIndexer(client, wordEmbedder, IndexerConfig{ID: "it-indexer", Embedder: "words", Concurrency: 2})
	require.NoError(t, err)

	res, err := ix.Index(ctx, []Document{
		{Content: "mongodb stores documents", Metadata: map[string]any{"topic": "db"}},
		{Content: "go compiles quickly", Metadata: map[string]any{"topic": "lang"}},
		{Content: "vector search finds similar documents", Metadata: map[string]any{"topic": "search"}},
	}, IndexRequest{DBName: dbName, CollectionName: collName, BatchSize: 2})
	require.NoError(t, err)
	require.Equal(t, 3, res.Inserted)

	_, err = indexes.Create(ctx, CreateSearchIndexRequest{
		DBName:         dbName,
		CollectionName: collName,
		Name:           "vector_index",
		Type:           "vectorSearch",
		Definition: Doc{{Key: "fields", Value: bson.A{bson.D{
			{Key: "type", Value: "vector"},
			{Key: "path", Value: "embedding"},
			{Key: "numDimensions", Value: 8},
			{Key: "similarity", Value: "euclidean"},
		}}}},
	})
	require.NoError(t, err)

	_, err = indexes.Create(ctx, CreateSearchIndexRequest{
		DBName:         dbName,
		CollectionName: collName,
		Name:           "default",
		Definition:     Doc{{Key: "mappings", Value: bson.D{{Key: "dynamic", Value: true}}}},
	})
	require.NoError(t, err)

	waitForQueryable(ctx, t, indexes, dbName, collName, "vector_index")
	waitForQueryable(ctx, t, indexes, dbName, collName, "default")

	r, err := NewRetriever(client, wordEmbedder, RetrieverConfig{ID: "it-retriever", Embedder: "words"})
	require.NoError(t, err)

	t.Run("vector search", func(t *testing.T) {
		require.Eventually(t, func() bool {
			docs, err := r.Retrieve(ctx, RetrieveRequest{
				DBName:         dbName,
				CollectionName: collName,
				Query:          "go compiles quickly",
				VectorSearch:   &VectorSearchOptions{Index: "vector_index", Limit: 1},
			})
			return err == nil && len(docs) == 1 && docs[0].Content == "go compiles quickly"
		}, time.Minute, time.Second)
	})

	t.Run("text search", func(t *testing.T) {
		require.Eventually(t, func() bool {
			docs, err := r.Retrieve(ctx, RetrieveRequest{
				DBName:         dbName,
				CollectionName: collName,
				Query:          "documents",
				Search:         &TextSearchOptions{Path: StringList{"data"}},
			})
			if err != nil || len(docs) != 2 {
				return false
			}
			for _, d := range docs {
				if d.Score <= 0 || d.Embedding != nil {
					return false
				}
			}
			return true
		}, time.Minute, time.Second)
	})

	t.Run("drop index", func(t *testing.T) {
		_, err := indexes.Drop(ctx, DropSearchIndexRequest{DBName: dbName, CollectionName: collName, Name: "default"})
		require.NoError(t, err)
	})
}

// waitForQueryable polls until the named search index reports queryable.
func waitForQueryable(ctx context.Context, t *testing.T, tools *SearchIndexTools, dbName, collName, name string) {
	t.Helper()
	require.Eventually(t, func() bool {
		res, err := tools.List(ctx, ListSearchIndexesRequest{DBName: dbName, CollectionName: collName, Name: name})
		if err != nil || len(res.Indexes) != 1 {
			return false
		}
		for _, e := range res.Indexes[0] {
			if e.Key == "queryable" {
				q, _ := e.Value.(bool)
				return q
			}
		}
		return false
	}, 2*time.Minute, 2*time.Second, "search index %s not queryable", name)
}

func initializeMongo(ctx context.Context, t *testing.T) (string, testcontainers.Container) {
	hostPort, err := getFreePort()
	require.NoError(t, err)

	containerInstance, err := createMongoContainer(ctx, hostPort)
	require.NoError(t, err)

	port, err := containerInstance.MappedPort(ctx, "27017")
	require.NoError(t, err)

	host, err := containerInstance.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("mongodb://%s/?directConnection=true", net.JoinHostPort(host, port.Port())), containerInstance
}

func createMongoContainer(ctx context.Context, hostPort string) (testcontainers.Container, error) {
	portBindings := nat.PortMap{
		"27017/tcp": []nat.PortBinding{{HostPort: hostPort}},
	}

	req := testcontainers.ContainerRequest{
		Image: atlasLocalImage,
		ExposedPorts: []string{
			"27017/tcp",
		},
		HostConfigModifier: func(cfg *container.HostConfig) {
			cfg.PortBindings = portBindings
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("27017/tcp").WithStartupTimeout(2*time.Minute),
			wait.ForHealthCheck().WithStartupTimeout(2*time.Minute),
		),
	}

	var containerInstance testcontainers.Container
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		containerInstance, lastErr = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if lastErr == nil {
			return containerInstance, nil
		}

		if strings.Contains(lastErr.Error(), "docker.sock") {
			time.Sleep(time.Duration(attempt+1) * time.Second)
			continue
		}

		break
	}

	return nil, fmt.Errorf("failed to start MongoDB container after 3 attempts: %w", lastErr)
}

func getFreePort() (string, error) {
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		return "", err
	}
	defer l.Close()
	addr := l.Addr().(*net.TCPAddr)
	return strconv.Itoa(addr.Port), nil
}
