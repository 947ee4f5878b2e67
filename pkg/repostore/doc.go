// Package repostore is the persistent registry of repositories known
// to the indexer, backed by BoltDB with JSON-encoded records.
package repostore
