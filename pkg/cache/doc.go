/*
Package cache keeps the relational metadata store, the full-text index
and the vector store coherent across indexing passes, at two levels of
granularity: whole files and embedding chunks.

Both caches are content-addressed and driven by the same mark-sweep
cycle: entries load stale at the start of a pass, are marked fresh as
the pipeline re-observes them, and whatever is still stale at the end
is deleted everywhere.

# Architecture

	┌───────────────────── INDEXING PASS ─────────────────────┐
	│                                                          │
	│  ┌────────────────────────────────────────┐              │
	│  │ FileCache (per repo_ref)               │              │
	│  │  Retrieve → Snapshot (path → hash)     │              │
	│  │  workers: Upsert (atomic per key)      │              │
	│  │  sweep:   Retain (drop stale)          │              │
	│  │  Persist: full replace, one tx         │              │
	│  └───────────────┬────────────────────────┘              │
	│                  │ per changed file                      │
	│  ┌───────────────▼────────────────────────┐              │
	│  │ ChunkCache (per file_hash)             │              │
	│  │  Observe: hit → mark fresh             │              │
	│  │           branch change → update bucket│              │
	│  │           miss → embed + queue insert  │              │
	│  │  Commit, one SQL tx:                   │              │
	│  │    A. branch updates + set_payload     │              │
	│  │    B. stale deletes  + delete_points   │              │
	│  │    C. inserts        + upsert_points   │              │
	│  └────────────────────────────────────────┘              │
	│                                                          │
	└──────────────────────────────────────────────────────────┘

# Coherence without two-phase commit

The vector store cannot participate in a relational transaction and
pipelines its writes besides. The discipline instead: point ids are
content-derived (reinsertion is idempotent), the relational commit is
the single linearization point and happens only after every vector RPC
was accepted, and whatever diverges on a partial failure is repaired
by the next pass's mark-sweep.
*/
package cache
