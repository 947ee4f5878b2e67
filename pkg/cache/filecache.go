package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/thomascherickal/bloop.ai/pkg/types"
)

// UpsertOutcome reports what a snapshot upsert found for the path.
type UpsertOutcome int

const (
	// EntryUnchanged means the stored hash matched; only the freshness
	// marker was flipped and the file needs no further work.
	EntryUnchanged UpsertOutcome = iota

	// EntryChanged means the path was known under a different hash.
	EntryChanged

	// EntryNew means the path was not in the snapshot at all.
	EntryNew
)

// Snapshot is the in-memory state of a repository's file cache during
// one pass: file disk path mapped to a freshness cell holding the
// content hash. It is shared by all of the pass's workers; every
// mutation goes through the per-key transactional Upsert.
type Snapshot struct {
	mu      sync.Mutex
	entries map[string]*Fresh[string]
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{entries: make(map[string]*Fresh[string])}
}

// Upsert transacts on the entry for path: an unchanged hash is marked
// fresh, anything else is replaced by a fresh cell with the new hash.
// The previous hash (empty for new entries) is returned so callers can
// retire state keyed on it.
func (s *Snapshot) Upsert(path, hash string) (prev string, outcome UpsertOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, ok := s.entries[path]
	if !ok {
		s.entries[path] = Observed(hash)
		return "", EntryNew
	}

	if cell.Value == hash {
		cell.MarkFresh()
		return cell.Value, EntryUnchanged
	}

	prev = cell.Value
	s.entries[path] = Observed(hash)
	return prev, EntryChanged
}

// Retain keeps only the entries the callback approves of, in a single
// linear scan. Used by the sweep after all workers have joined.
func (s *Snapshot) Retain(keep func(path, hash string, fresh bool) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, cell := range s.entries {
		if !keep(path, cell.Value, cell.IsFresh()) {
			delete(s.entries, path)
		}
	}
}

// Get returns the hash stored for path.
func (s *Snapshot) Get(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, ok := s.entries[path]
	if !ok {
		return "", false
	}
	return cell.Value, true
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// FileCache manages the relational cache for one repository,
// establishing a content-addressed space for the files in it.
//
// The cache keys are mirrored in the full-text index per file entry,
// as the index cannot upsert content. Consistency with the full-text
// state is NOT ensured here.
type FileCache struct {
	db      *DB
	repoRef types.RepoRef
}

// ForRepo binds a file cache to a repository.
func ForRepo(db *DB, repoRef types.RepoRef) *FileCache {
	return &FileCache{db: db, repoRef: repoRef}
}

// Retrieve loads the stored rows into a snapshot. Every entry starts
// stale; the pass marks what it re-observes. The read runs in one
// implicit transaction, so the snapshot is a point-in-time view.
func (c *FileCache) Retrieve(ctx context.Context) (*Snapshot, error) {
	rows, err := c.db.db.QueryContext(ctx,
		"SELECT file_path, cache_hash FROM file_cache WHERE repo_ref = ?",
		c.repoRef.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve file cache: %w", err)
	}
	defer rows.Close()

	snapshot := NewSnapshot()
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan file cache row: %w", err)
		}
		snapshot.entries[path] = Stale(hash)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file cache rows: %w", err)
	}

	return snapshot, nil
}

// Persist replaces the repository's rows with the snapshot's entries
// in one transaction. The snapshot already reflects exactly the set of
// files that should remain (the sweep has dropped stale entries), so a
// full replace is simpler than diffing and just as safe.
func (c *FileCache) Persist(ctx context.Context, snapshot *Snapshot) error {
	tx, err := c.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin persist transaction: %w", err)
	}
	defer tx.Rollback()

	if err := c.deleteFiles(ctx, tx); err != nil {
		return err
	}

	snapshot.mu.Lock()
	defer snapshot.mu.Unlock()

	for path, cell := range snapshot.entries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO file_cache (repo_ref, file_path, cache_hash) VALUES (?, ?, ?)",
			c.repoRef.String(), path, cell.Value,
		)
		if err != nil {
			return fmt.Errorf("failed to insert file cache row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit file cache: %w", err)
	}
	return nil
}

// Delete retires the repository: file-cache and chunk-cache rows go in
// a single transaction.
func (c *FileCache) Delete(ctx context.Context) error {
	tx, err := c.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if err := c.deleteFiles(ctx, tx); err != nil {
		return err
	}
	if err := c.deleteChunks(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit repo deletion: %w", err)
	}
	return nil
}

func (c *FileCache) deleteFiles(ctx context.Context, tx txExecer) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM file_cache WHERE repo_ref = ?", c.repoRef.String())
	if err != nil {
		return fmt.Errorf("failed to delete file cache rows: %w", err)
	}
	return nil
}

func (c *FileCache) deleteChunks(ctx context.Context, tx txExecer) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM chunk_cache WHERE repo_ref = ?", c.repoRef.String())
	if err != nil {
		return fmt.Errorf("failed to delete chunk cache rows: %w", err)
	}
	return nil
}

// ChunksForFile opens the chunk cache scoped to one file content hash.
func (c *FileCache) ChunksForFile(ctx context.Context, fileHash string) (*ChunkCache, error) {
	return newChunkCache(ctx, c.db, c.repoRef, fileHash)
}

type txExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
