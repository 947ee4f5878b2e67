package cache

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is the relational side of the caches: a single SQLite database
// holding the file_cache and chunk_cache tables.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the cache database under indexDir and
// bootstraps the schema.
func Open(ctx context.Context, indexDir string) (*DB, error) {
	// WAL allows the pass's readers to coexist with the single writer;
	// the busy timeout covers writer handoff between commits.
	dsn := filepath.Join(indexDir, "cache.db") + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// SQLite supports one writer at a time; funnel everything through
	// one connection so transactions never contend with ourselves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	d := &DB{db: db}
	if err := d.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return d, nil
}

// Close closes the database
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS file_cache (
		repo_ref   TEXT NOT NULL,
		file_path  TEXT NOT NULL,
		cache_hash TEXT NOT NULL,
		UNIQUE(repo_ref, file_path)
	);
	CREATE INDEX IF NOT EXISTS idx_file_cache_repo ON file_cache(repo_ref);

	CREATE TABLE IF NOT EXISTS chunk_cache (
		chunk_hash TEXT NOT NULL PRIMARY KEY,
		file_hash  TEXT NOT NULL,
		branches   TEXT NOT NULL,
		repo_ref   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunk_cache_file ON chunk_cache(file_hash);
	CREATE INDEX IF NOT EXISTS idx_chunk_cache_repo ON chunk_cache(repo_ref);
	`

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return nil
}
