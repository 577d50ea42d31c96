// Package rag implements the retrieval half of the chat pipeline.
//
// It provides:
//   - EmbeddingClient, a dimension-checked wrapper over a provider embedder
//   - Retriever, which embeds a query and matches it against the document store
//   - AssembleContext and InjectContext, which turn matches into a system
//     message placed before the user's latest question
//
// The package holds no state between calls. Credentials travel with each call.
package rag
