package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/thomascherickal/bloop.ai/pkg/content"
	"github.com/thomascherickal/bloop.ai/pkg/semantic"
	"github.com/thomascherickal/bloop.ai/pkg/types"
)

// CommitStats counts what one chunk-cache commit wrote.
type CommitStats struct {
	Inserted int
	Updated  int
	Deleted  int
}

type chunkRow struct {
	id           uuid.UUID
	branchesHash string
}

// branchUpdate groups every chunk that moved to the same branch set,
// so the whole bucket commits as a single payload-set RPC.
type branchUpdate struct {
	branches []string
	ids      []uuid.UUID
}

// ChunkCache keeps the relational chunk rows and the vector store
// coherent, at the level of a single file.
//
// Observations buffer their writes; Commit flushes them in three
// ordered phases inside one relational transaction. The relational
// state is the source of truth: if any vector RPC fails before the
// transaction commits, the rows roll back and the next pass replays
// the work.
type ChunkCache struct {
	db       *DB
	repoRef  types.RepoRef
	fileHash string

	mu            sync.Mutex
	cache         map[uuid.UUID]*Fresh[string]
	branchUpdates map[string]*branchUpdate
	newRows       []chunkRow
	newPoints     []semantic.Point
}

func newChunkCache(ctx context.Context, db *DB, repoRef types.RepoRef, fileHash string) (*ChunkCache, error) {
	rows, err := db.db.QueryContext(ctx,
		"SELECT chunk_hash, branches FROM chunk_cache WHERE file_hash = ?",
		fileHash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk cache: %w", err)
	}
	defer rows.Close()

	cache := make(map[uuid.UUID]*Fresh[string])
	for rows.Next() {
		var chunkHash, branches string
		if err := rows.Scan(&chunkHash, &branches); err != nil {
			return nil, fmt.Errorf("failed to scan chunk cache row: %w", err)
		}

		id, err := uuid.Parse(chunkHash)
		if err != nil {
			return nil, fmt.Errorf("malformed chunk hash %q: %w", chunkHash, err)
		}
		cache[id] = Stale(branches)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunk cache rows: %w", err)
	}

	return &ChunkCache{
		db:            db,
		repoRef:       repoRef,
		fileHash:      fileHash,
		cache:         cache,
		branchUpdates: make(map[string]*branchUpdate),
	}, nil
}

// FileHash returns the content hash of the file these chunks belong to.
func (c *ChunkCache) FileHash() string {
	return c.fileHash
}

// Observe records one chunk of the file as seen this pass.
//
// A chunk already cached with the same branch set is only marked
// fresh. A cached chunk whose branch set changed joins the pending
// branch-update bucket; the embedding is not recomputed. An unknown
// chunk is embedded and queued for insertion into both stores. An
// embedder error propagates and leaves the cache untouched.
//
// Safe for concurrent use; the embedder runs outside the cache lock.
func (c *ChunkCache) Observe(ctx context.Context, chunk []byte, embed semantic.Embedder, payload semantic.Payload) error {
	id := content.ChunkID(c.fileHash, chunk)
	branchesHash := content.BranchesHash(payload.Branches)

	c.mu.Lock()
	if _, ok := c.cache[id]; ok {
		c.observeHit(id, branchesHash, payload.Branches)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	vector, err := embed(ctx, chunk)
	if err != nil {
		return fmt.Errorf("failed to embed chunk: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another worker may have inserted the same id while we embedded.
	if _, ok := c.cache[id]; ok {
		c.observeHit(id, branchesHash, payload.Branches)
		return nil
	}

	c.newRows = append(c.newRows, chunkRow{id: id, branchesHash: branchesHash})
	c.newPoints = append(c.newPoints, semantic.Point{ID: id, Vector: vector, Payload: payload})
	c.cache[id] = Observed(branchesHash)

	return nil
}

// observeHit handles a chunk already present in the cache. Caller
// holds the lock.
func (c *ChunkCache) observeHit(id uuid.UUID, branchesHash string, branches []string) {
	if c.cache[id].Value != branchesHash {
		update, ok := c.branchUpdates[branchesHash]
		if !ok {
			update = &branchUpdate{branches: branches}
			c.branchUpdates[branchesHash] = update
		}
		update.ids = append(update.ids, id)
	}
	c.cache[id] = Observed(branchesHash)
}

// Commit flushes the buffered work to both stores: branch updates,
// then deletions of everything left stale, then inserts, all inside
// one relational transaction.
//
// The relational writes mirror the vector-store changes 1:1, and the
// transaction commits only after every vector RPC has been accepted.
// The vector store pipelines its writes, so an accepted RPC is not
// necessarily query-visible yet; no read-back is attempted here.
func (c *ChunkCache) Commit(ctx context.Context, vectors semantic.VectorStore, collection string) (CommitStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stats CommitStats

	tx, err := c.db.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin chunk commit: %w", err)
	}
	defer tx.Rollback()

	updated, err := c.commitBranchUpdates(ctx, tx, vectors, collection)
	if err != nil {
		return stats, err
	}

	deleted, err := c.commitDeletes(ctx, tx, vectors, collection)
	if err != nil {
		return stats, err
	}

	inserted, err := c.commitInserts(ctx, tx, vectors, collection)
	if err != nil {
		return stats, err
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("failed to commit chunk cache: %w", err)
	}

	stats = CommitStats{Inserted: inserted, Updated: updated, Deleted: deleted}
	return stats, nil
}

// commitBranchUpdates rewrites the branch set of chunks whose content
// survived but whose visibility changed. One payload-set RPC per
// bucket; buckets run concurrently and join before the next phase.
func (c *ChunkCache) commitBranchUpdates(ctx context.Context, tx txExecer, vectors semantic.VectorStore, collection string) (int, error) {
	updated := 0

	g, gctx := errgroup.WithContext(ctx)
	for branchesHash, update := range c.branchUpdates {
		updated += len(update.ids)

		for _, id := range update.ids {
			_, err := tx.ExecContext(ctx,
				"UPDATE chunk_cache SET branches = ? WHERE chunk_hash = ?",
				branchesHash, id.String(),
			)
			if err != nil {
				return 0, fmt.Errorf("failed to update chunk branches: %w", err)
			}
		}

		g.Go(func() error {
			return vectors.SetPayload(gctx, collection, update.ids, map[string]any{
				"branches": semantic.BranchesValue(update.branches),
			})
		})
	}

	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("failed to update point payloads: %w", err)
	}

	return updated, nil
}

// commitDeletes removes every chunk left stale: present in the last
// index, not re-observed in this one.
func (c *ChunkCache) commitDeletes(ctx context.Context, tx txExecer, vectors semantic.VectorStore, collection string) (int, error) {
	var toDelete []uuid.UUID
	for id, cell := range c.cache {
		if !cell.IsFresh() {
			toDelete = append(toDelete, id)
		}
	}

	for _, id := range toDelete {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM chunk_cache WHERE chunk_hash = ? AND file_hash = ?",
			id.String(), c.fileHash,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to delete chunk row: %w", err)
		}
	}

	// The store rejects empty batches.
	if len(toDelete) > 0 {
		if err := vectors.DeletePoints(ctx, collection, toDelete); err != nil {
			return 0, fmt.Errorf("failed to delete points: %w", err)
		}
	}

	return len(toDelete), nil
}

// commitInserts writes newly observed chunks. The vector write is an
// upsert: chunk ids are content-derived, so replaying after a partial
// failure converges instead of colliding.
func (c *ChunkCache) commitInserts(ctx context.Context, tx txExecer, vectors semantic.VectorStore, collection string) (int, error) {
	for _, row := range c.newRows {
		// OR REPLACE: identical files share content hashes, so two
		// paths can legitimately race to insert the same chunk id.
		_, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO chunk_cache (chunk_hash, file_hash, branches, repo_ref) VALUES (?, ?, ?, ?)",
			row.id.String(), c.fileHash, row.branchesHash, c.repoRef.String(),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert chunk row: %w", err)
		}
	}

	if len(c.newPoints) > 0 {
		if err := vectors.UpsertPoints(ctx, collection, c.newPoints); err != nil {
			return 0, fmt.Errorf("failed to upsert points: %w", err)
		}
	}

	return len(c.newPoints), nil
}
