// Package registry holds the actions (indexers, retrievers and tools) an
// application exposes, keyed by kind and name.
//
// Actions are registered once at startup and looked up by exact key
// afterwards:
//
//	reg := registry.New()
//	err := reg.Register(registry.Action{
//		Key: registry.Key{Kind: registry.KindRetriever, Name: "mongodb/docs"},
//		Run: registry.Typed(retriever.Retrieve),
//	})
//	out, err := reg.Run(ctx, registry.Key{Kind: registry.KindRetriever, Name: "mongodb/docs"}, input)
package registry
