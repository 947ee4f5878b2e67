/*
Package semantic holds the embedding side of indexing: the Embedder
callback contract, the chunk payload model, the line-window chunker,
and the qdrant-backed VectorStore adapter.

Vector writes are pipelined on the server: an accepted RPC is not yet
query-visible, and callers must not read their own writes back.
*/
package semantic
