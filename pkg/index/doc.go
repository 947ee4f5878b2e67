/*
Package index drives one indexing pass per repository: walk the
working copy in parallel, hash every file against the cache snapshot,
rebuild documents and embedding chunks for what changed, then sweep
whatever disappeared.

The per-file workers are data-parallel and unordered; a file whose
hash is unchanged costs nothing beyond the hash itself. Failures are
contained at file granularity: they log, count, and never abort the
pass. The pass as a whole is the unit of retry.
*/
package index
