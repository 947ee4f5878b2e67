package index

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomascherickal/bloop.ai/pkg/cache"
	"github.com/thomascherickal/bloop.ai/pkg/semantic"
	"github.com/thomascherickal/bloop.ai/pkg/textindex"
	"github.com/thomascherickal/bloop.ai/pkg/types"
)

// fakeWriter is an in-memory stand-in for the full-text engine with
// append-only adds and delete-by-term.
type fakeWriter struct {
	mu      sync.Mutex
	docs    []textindex.Document
	adds    int
	deletes int
}

func (f *fakeWriter) AddDocument(doc textindex.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adds++
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeWriter) DeleteByTerm(field, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++

	kept := f.docs[:0]
	for _, doc := range f.docs {
		var v string
		switch field {
		case textindex.FieldFileDiskPath:
			v = doc.FileDiskPath
		case textindex.FieldRepoDiskPath:
			v = doc.RepoDiskPath
		}
		if v != text {
			kept = append(kept, doc)
		}
	}
	f.docs = kept
	return nil
}

func (f *fakeWriter) byPath(path string) []textindex.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []textindex.Document
	for _, doc := range f.docs {
		if doc.FileDiskPath == path {
			out = append(out, doc)
		}
	}
	return out
}

type fakeVectors struct {
	mu  sync.Mutex
	ops []string
}

func (f *fakeVectors) UpsertPoints(_ context.Context, _ string, _ []semantic.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "upsert")
	return nil
}

func (f *fakeVectors) DeletePoints(_ context.Context, _ string, _ []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "delete")
	return nil
}

func (f *fakeVectors) SetPayload(_ context.Context, _ string, _ []uuid.UUID, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "set_payload")
	return nil
}

func (f *fakeVectors) opCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ops)
}

type fixture struct {
	db      *cache.DB
	repo    *types.Repository
	info    *types.RepoHeadInfo
	writer  *fakeWriter
	vectors *fakeVectors
	embeds  int
	mu      sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := cache.Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repoDir := t.TempDir()
	return &fixture{
		db: db,
		repo: &types.Repository{
			Ref:      types.RepoRef("local/" + repoDir),
			Name:     filepath.Base(repoDir),
			DiskPath: repoDir,
		},
		info: &types.RepoHeadInfo{
			Branches:           []string{"main"},
			LastCommitUnixSecs: 1700000000,
		},
		writer:  &fakeWriter{},
		vectors: &fakeVectors{},
	}
}

func (fx *fixture) write(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(fx.repo.DiskPath, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func (fx *fixture) embedder() semantic.Embedder {
	return func(_ context.Context, _ []byte) ([]float32, error) {
		fx.mu.Lock()
		fx.embeds++
		fx.mu.Unlock()
		return []float32{1, 2, 3}, nil
	}
}

func (fx *fixture) indexer(sem *SemanticIndexer) *FileIndexer {
	return NewFileIndexer(fx.db, "1", 4, []string{"**/.git/**"}, nil, sem)
}

func (fx *fixture) semantic() *SemanticIndexer {
	return &SemanticIndexer{
		Embed:      fx.embedder(),
		Vectors:    fx.vectors,
		Collection: "documents",
	}
}

// TestSingleFilePass tests the empty-repo-to-single-file scenario:
// pass one indexes, an unmodified pass two does nothing
func TestSingleFilePass(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	path := fx.write(t, "a.txt", "hi\n")

	ix := fx.indexer(nil)

	report, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 0, report.Skipped)
	require.Len(t, fx.writer.byPath(path), 1)

	report, err = ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Indexed)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, fx.writer.adds)
}

// TestUnchangedFileIsFree tests invariant 1: an unchanged file costs
// zero document writes, zero embeddings, zero vector RPCs
func TestUnchangedFileIsFree(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.write(t, "a.txt", "hi\n")

	ix := fx.indexer(fx.semantic())

	_, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)
	addsAfterFirst := fx.writer.adds
	embedsAfterFirst := fx.embeds
	opsAfterFirst := fx.vectors.opCount()

	report, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, addsAfterFirst, fx.writer.adds)
	assert.Equal(t, embedsAfterFirst, fx.embeds)
	assert.Equal(t, opsAfterFirst, fx.vectors.opCount())
	assert.Zero(t, report.ChunksInserted+report.ChunksUpdated+report.ChunksDeleted)
}

// TestEditedFile tests that a content change supersedes the prior
// document and exactly one survives
func TestEditedFile(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	path := fx.write(t, "a.txt", "hi\n")

	ix := fx.indexer(nil)
	_, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)

	fx.write(t, "a.txt", "hello\n")
	report, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Indexed)
	assert.Equal(t, 0, report.SweptDocuments)

	docs := fx.writer.byPath(path)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello\n", docs[0].Content)
}

// TestDeletedFile tests the sweep: a removed file loses its document
// and its cache row
func TestDeletedFile(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	path := fx.write(t, "a.txt", "hi\n")
	fx.write(t, "b.txt", "yo\n")

	ix := fx.indexer(nil)
	_, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	report, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SweptDocuments)
	assert.Empty(t, fx.writer.byPath(path))

	// Only b.txt's row survives in the relational cache.
	fc := cache.ForRepo(fx.db, fx.repo.Ref)
	snap, err := fc.Retrieve(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Len())
}

// TestDeletedFilePurgesChunks tests that sweeping a file retires its
// vector points too
func TestDeletedFilePurgesChunks(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	path := fx.write(t, "a.txt", "hi\n")

	ix := fx.indexer(fx.semantic())
	report, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ChunksInserted)

	require.NoError(t, os.Remove(path))
	report, err = ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ChunksDeleted)
}

// TestEditedFileReplacesChunks tests chunk turnover on content change:
// old chunks deleted, new ones inserted
func TestEditedFileReplacesChunks(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.write(t, "a.txt", "hi\n")

	ix := fx.indexer(fx.semantic())
	_, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)

	fx.write(t, "a.txt", "hello\n")
	report, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ChunksInserted)
	assert.Equal(t, 1, report.ChunksDeleted)
}

// TestDocumentShape tests the fields of a written document
func TestDocumentShape(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	// No trailing newline: the indexer must append one.
	path := fx.write(t, "src/main.go", "package main")

	ix := fx.indexer(nil)
	_, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)

	docs := fx.writer.byPath(path)
	require.Len(t, docs, 1)
	doc := docs[0]

	assert.Equal(t, "package main\n", doc.Content)
	assert.Equal(t, filepath.Join("src", "main.go"), doc.RelativePath)
	assert.Equal(t, fx.repo.DiskPath, doc.RepoDiskPath)
	assert.Equal(t, "go", doc.Lang)
	assert.Equal(t, uint64(1700000000), doc.LastCommitUnixSecs)
	assert.Equal(t, float64(13), doc.AvgLineLength)

	require.Len(t, doc.LineEndIndices, 4)
	assert.Equal(t, uint32(12), binary.LittleEndian.Uint32(doc.LineEndIndices))
}

// TestIgnoreGlobs tests that ignored paths never reach the index
func TestIgnoreGlobs(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.write(t, "a.txt", "hi\n")
	fx.write(t, ".git/HEAD", "ref: refs/heads/main\n")

	ix := fx.indexer(nil)
	report, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 1, report.Indexed)
}

// TestSymbolFallbackToTags tests the ctags fallback when no extractor
// is configured
func TestSymbolFallbackToTags(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	path := fx.write(t, "a.go", "func handler() {}\n")

	fx.info.Tags = map[string][]types.TaggedSymbol{
		"a.go": {{Name: "handler", Kind: "function", StartByte: 5, EndByte: 12}},
	}

	ix := fx.indexer(nil)
	_, err := ix.IndexRepository(ctx, fx.repo, fx.info, fx.writer)
	require.NoError(t, err)

	docs := fx.writer.byPath(path)
	require.Len(t, docs, 1)
	assert.Equal(t, "handler", docs[0].Symbols)
}
