// Package plugin builds the MongoDB components described by a configuration
// file and registers them as actions:
//
//	mongodb/<id>                   indexer or retriever
//	mongodb/<toolsID>/create       insert a document
//	mongodb/<toolsID>/read         read a document by id
//	mongodb/<toolsID>/update       update a document by id
//	mongodb/<toolsID>/delete       delete a document by id
//	mongodb/<toolsID>/createSearchIndex
//	mongodb/<toolsID>/listSearchIndexes
//	mongodb/<toolsID>/dropSearchIndex
//
// Indexers take {"documents": [...], "options": {...}}; retrievers and tools
// take their request type directly, as JSON.
//
//	cfg, err := plugin.LoadConfig("mongosearch.yaml", ".env")
//	p, err := plugin.New(cfg, plugin.WithLogger(log))
//	defer p.Close(ctx)
//	out, err := p.Registry().Run(ctx, registry.Key{
//		Kind: registry.KindRetriever,
//		Name: "mongodb/docs",
//	}, input)
package plugin
