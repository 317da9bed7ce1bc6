package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/Aleph-Alpha/mongosearch/v1/embedding"
	"github.com/Aleph-Alpha/mongosearch/v1/mongodb"
	"github.com/Aleph-Alpha/mongosearch/v1/observability"
	"github.com/Aleph-Alpha/mongosearch/v1/registry"
)

// ActionPrefix starts the name of every registered action.
const ActionPrefix = "mongodb"

// Tool operation names, registered as "mongodb/<toolsID>/<operation>".
const (
	OpCreate            = "create"
	OpRead              = "read"
	OpUpdate            = "update"
	OpDelete            = "delete"
	OpCreateSearchIndex = "createSearchIndex"
	OpListSearchIndexes = "listSearchIndexes"
	OpDropSearchIndex   = "dropSearchIndex"
)

// Logger is an interface that matches the v1/logger.Logger
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Client is what the plugin needs from a MongoDB client.
type Client interface {
	mongodb.Collections
	Close(ctx context.Context) error
}

// ClientFactory connects to one deployment.
type ClientFactory func(cfg mongodb.Config) (Client, error)

func defaultClientFactory(cfg mongodb.Config) (Client, error) {
	return mongodb.NewClient(cfg)
}

// IndexInput is the input of an indexer action.
type IndexInput struct {
	Documents []mongodb.Document   `json:"documents"`
	Options   mongodb.IndexRequest `json:"options"`
}

// RetrieveOutput is the output of a retriever action.
type RetrieveOutput struct {
	Documents []mongodb.Document `json:"documents"`
}

// Option customizes New.
type Option func(*Plugin)

// WithEmbedder registers an embedder under name, in addition to those built
// from Config.Embedders. It takes precedence over a configured one.
func WithEmbedder(name string, e embedding.Embedder) Option {
	return func(p *Plugin) {
		p.embedders[name] = e
	}
}

// WithClientFactory replaces mongodb.NewClient, e.g. in tests.
func WithClientFactory(f ClientFactory) Option {
	return func(p *Plugin) {
		p.factory = f
	}
}

// WithLogger sets the logger passed to clients and components.
func WithLogger(l Logger) Option {
	return func(p *Plugin) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver sets the observer attached to every MongoDB client.
func WithObserver(o observability.Observer) Option {
	return func(p *Plugin) {
		p.observer = o
	}
}

// Plugin owns the MongoDB clients and the registry of actions built on
// them.
type Plugin struct {
	registry  *registry.Registry
	embedders map[string]embedding.Embedder
	factory   ClientFactory
	logger    Logger
	observer  observability.Observer

	clients    []namedClient
	owned      map[string]*embedding.Client
	indexers   map[string]*mongodb.Indexer
	retrievers map[string]*mongodb.Retriever
}

type namedClient struct {
	name   string
	client Client
}

// New validates cfg, resolves embedders, connects every configured
// deployment and registers all indexers, retrievers and tools. If any step
// fails, clients opened so far are closed again.
func New(cfg Config, opts ...Option) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Plugin{
		registry:   registry.New(),
		embedders:  make(map[string]embedding.Embedder),
		owned:      make(map[string]*embedding.Client),
		factory:    defaultClientFactory,
		logger:     nopLogger{},
		indexers:   make(map[string]*mongodb.Indexer),
		retrievers: make(map[string]*mongodb.Retriever),
	}
	for _, opt := range opts {
		opt(p)
	}

	for name, ecfg := range cfg.Embedders {
		if _, ok := p.embedders[name]; ok {
			continue
		}
		client, err := embedding.NewClient(&ecfg)
		if err != nil {
			return nil, fmt.Errorf("plugin: embedder %q: %w", name, err)
		}
		p.embedders[name] = client
		p.owned[name] = client
	}

	for _, conn := range cfg.Connections {
		if err := p.connect(conn); err != nil {
			_ = p.Close(context.Background())
			return nil, err
		}
	}

	p.logger.Info("MongoDB plugin initialized", nil, map[string]interface{}{
		"connections": len(p.clients),
		"actions":     len(p.registry.List()),
	})
	return p, nil
}

func (p *Plugin) connect(conn ConnectionConfig) error {
	mcfg := conn.Mongo
	if mcfg.Logger == nil {
		mcfg.Logger = p.logger
	}

	client, err := p.factory(mcfg)
	if err != nil {
		return fmt.Errorf("plugin: connection %q: %w", conn.Name, err)
	}
	if mc, ok := client.(*mongodb.MongoClient); ok && p.observer != nil {
		mc.WithObserver(p.observer)
	}
	p.clients = append(p.clients, namedClient{name: conn.Name, client: client})

	for _, icfg := range conn.Indexers {
		if err := p.registerIndexer(client, icfg); err != nil {
			return fmt.Errorf("plugin: connection %q: %w", conn.Name, err)
		}
	}
	for _, rcfg := range conn.Retrievers {
		if err := p.registerRetriever(client, rcfg); err != nil {
			return fmt.Errorf("plugin: connection %q: %w", conn.Name, err)
		}
	}
	if conn.CRUDTools != nil {
		if err := p.registerCRUDTools(client, *conn.CRUDTools); err != nil {
			return fmt.Errorf("plugin: connection %q: %w", conn.Name, err)
		}
	}
	if conn.SearchIndexTools != nil {
		if err := p.registerSearchIndexTools(client, *conn.SearchIndexTools); err != nil {
			return fmt.Errorf("plugin: connection %q: %w", conn.Name, err)
		}
	}
	return nil
}

func (p *Plugin) embedder(name string) (embedding.Embedder, error) {
	e, ok := p.embedders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", mongodb.ErrEmbedderNotFound, name)
	}
	return e, nil
}

// ActionName returns "mongodb/<id>" or, with an operation,
// "mongodb/<id>/<operation>".
func ActionName(id string, operation ...string) string {
	name := ActionPrefix + "/" + id
	for _, op := range operation {
		name += "/" + op
	}
	return name
}

func (p *Plugin) registerIndexer(client Client, cfg mongodb.IndexerConfig) error {
	e, err := p.embedder(cfg.Embedder)
	if err != nil {
		return err
	}
	ix, err := mongodb.NewIndexer(client, e, cfg)
	if err != nil {
		return err
	}

	err = p.registry.Register(registry.Action{
		Key:         registry.Key{Kind: registry.KindIndexer, Name: ActionName(cfg.ID)},
		Description: "Embeds documents and stores them in MongoDB",
		Config:      ix.Config(),
		Run: registry.Typed(func(ctx context.Context, in IndexInput) (*mongodb.IndexResult, error) {
			return ix.Index(ctx, in.Documents, in.Options)
		}),
	})
	if err != nil {
		return err
	}
	p.indexers[cfg.ID] = ix
	return nil
}

func (p *Plugin) registerRetriever(client Client, cfg mongodb.RetrieverConfig) error {
	e, err := p.embedder(cfg.Embedder)
	if err != nil {
		return err
	}
	r, err := mongodb.NewRetriever(client, e, cfg)
	if err != nil {
		return err
	}

	err = p.registry.Register(registry.Action{
		Key:         registry.Key{Kind: registry.KindRetriever, Name: ActionName(cfg.ID)},
		Description: "Retrieves documents with vector, text or hybrid search",
		Config:      r.Config(),
		Run: registry.Typed(func(ctx context.Context, req mongodb.RetrieveRequest) (*RetrieveOutput, error) {
			docs, err := r.Retrieve(ctx, req)
			if err != nil {
				return nil, err
			}
			return &RetrieveOutput{Documents: docs}, nil
		}),
	})
	if err != nil {
		return err
	}
	p.retrievers[cfg.ID] = r
	return nil
}

func (p *Plugin) registerCRUDTools(client Client, cfg mongodb.ToolsConfig) error {
	tools, err := mongodb.NewCRUDTools(client, cfg)
	if err != nil {
		return err
	}

	return p.registerTools(cfg, []toolAction{
		{OpCreate, "Inserts a document", registry.Typed(tools.Create)},
		{OpRead, "Reads a document by id", registry.Typed(tools.Read)},
		{OpUpdate, "Updates a document by id", registry.Typed(tools.Update)},
		{OpDelete, "Deletes a document by id", registry.Typed(tools.Delete)},
	})
}

func (p *Plugin) registerSearchIndexTools(client Client, cfg mongodb.ToolsConfig) error {
	tools, err := mongodb.NewSearchIndexTools(client, cfg)
	if err != nil {
		return err
	}

	return p.registerTools(cfg, []toolAction{
		{OpCreateSearchIndex, "Creates an Atlas Search or Vector Search index", registry.Typed(tools.Create)},
		{OpListSearchIndexes, "Lists the search indexes of a collection", registry.Typed(tools.List)},
		{OpDropSearchIndex, "Drops a search index", registry.Typed(tools.Drop)},
	})
}

type toolAction struct {
	op          string
	description string
	run         registry.RunFunc
}

func (p *Plugin) registerTools(cfg mongodb.ToolsConfig, actions []toolAction) error {
	for _, a := range actions {
		err := p.registry.Register(registry.Action{
			Key:         registry.Key{Kind: registry.KindTool, Name: ActionName(cfg.ID, a.op)},
			Description: a.description,
			Config:      cfg,
			Run:         a.run,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Registry returns the registry of all actions.
func (p *Plugin) Registry() *registry.Registry {
	return p.registry
}

// Indexer returns the indexer registered under id.
func (p *Plugin) Indexer(id string) (*mongodb.Indexer, bool) {
	ix, ok := p.indexers[id]
	return ix, ok
}

// Retriever returns the retriever registered under id.
func (p *Plugin) Retriever(id string) (*mongodb.Retriever, bool) {
	r, ok := p.retrievers[id]
	return r, ok
}

// Close disconnects every client and closes the embedders built from
// Config.Embedders.
func (p *Plugin) Close(ctx context.Context) error {
	var errs []error
	for _, c := range p.clients {
		if err := c.client.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("connection %q: %w", c.name, err))
		}
	}
	p.clients = nil

	for name, e := range p.owned {
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("embedder %q: %w", name, err))
		}
	}
	p.owned = nil
	return errors.Join(errs...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, error, ...map[string]interface{}) {}
func (nopLogger) Info(string, error, ...map[string]interface{})  {}
func (nopLogger) Warn(string, error, ...map[string]interface{})  {}
func (nopLogger) Error(string, error, ...map[string]interface{}) {}
