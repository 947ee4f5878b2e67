package cache

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/thomascherickal/bloop.ai/pkg/semantic"
)

// fakeVectors records vector-store calls in order and can be told to
// fail any operation.
type fakeVectors struct {
	mu  sync.Mutex
	ops []string

	upserts  [][]semantic.Point
	deletes  [][]uuid.UUID
	payloads []map[string]any

	failUpsert     bool
	failDelete     bool
	failSetPayload bool
}

var errVectorStore = errors.New("vector store unavailable")

func (f *fakeVectors) UpsertPoints(_ context.Context, _ string, points []semantic.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsert {
		return errVectorStore
	}
	f.ops = append(f.ops, "upsert")
	f.upserts = append(f.upserts, points)
	return nil
}

func (f *fakeVectors) DeletePoints(_ context.Context, _ string, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return errVectorStore
	}
	f.ops = append(f.ops, "delete")
	f.deletes = append(f.deletes, ids)
	return nil
}

func (f *fakeVectors) SetPayload(_ context.Context, _ string, ids []uuid.UUID, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetPayload {
		return errVectorStore
	}
	f.ops = append(f.ops, "set_payload")
	f.payloads = append(f.payloads, payload)
	return nil
}

// countingEmbedder returns a fixed vector and counts invocations.
type countingEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (e *countingEmbedder) embed(_ context.Context, _ []byte) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return nil, errors.New("embedder down")
	}
	e.calls = e.calls + 1
	return []float32{0.1, 0.2, 0.3}, nil
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func countRows(t *testing.T, db *DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.db.QueryRow(query, args...).Scan(&n))
	return n
}
