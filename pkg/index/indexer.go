package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/thomascherickal/bloop.ai/pkg/cache"
	"github.com/thomascherickal/bloop.ai/pkg/content"
	"github.com/thomascherickal/bloop.ai/pkg/log"
	"github.com/thomascherickal/bloop.ai/pkg/metrics"
	"github.com/thomascherickal/bloop.ai/pkg/semantic"
	"github.com/thomascherickal/bloop.ai/pkg/symbols"
	"github.com/thomascherickal/bloop.ai/pkg/textindex"
	"github.com/thomascherickal/bloop.ai/pkg/types"
)

// SemanticIndexer bundles everything the pipeline needs to keep the
// chunk cache and the vector store coherent. A nil SemanticIndexer
// disables the semantic side entirely.
type SemanticIndexer struct {
	Embed      semantic.Embedder
	Vectors    semantic.VectorStore
	Collection string

	// Chunk window geometry; zero values use the defaults.
	Window int
	Stride int
}

// FileIndexer drives one indexing pass per repository: walk the
// working copy, refresh the full-text index and the caches for every
// changed file, then sweep what disappeared.
type FileIndexer struct {
	db          *cache.DB
	schemaTag   string
	parallelism int
	ignoreGlobs []string

	extractor symbols.Extractor
	sem       *SemanticIndexer
}

// NewFileIndexer assembles a pipeline. extractor and sem may be nil:
// the former falls straight through to the tag-map fallback, the
// latter turns off chunk embedding.
func NewFileIndexer(db *cache.DB, schemaTag string, parallelism int, ignoreGlobs []string, extractor symbols.Extractor, sem *SemanticIndexer) *FileIndexer {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &FileIndexer{
		db:          db,
		schemaTag:   schemaTag,
		parallelism: parallelism,
		ignoreGlobs: ignoreGlobs,
		extractor:   extractor,
		sem:         sem,
	}
}

// workload carries one file through the per-file procedure.
type workload struct {
	fileDiskPath string
	repo         *types.Repository
	info         *types.RepoHeadInfo
	snapshot     *cache.Snapshot
	fileCache    *cache.FileCache
	writer       textindex.Writer
	report       *passCounters
}

// passCounters aggregates worker outcomes; all fields are guarded.
type passCounters struct {
	mu sync.Mutex
	types.PassReport
}

func (p *passCounters) add(mutate func(*types.PassReport)) {
	p.mu.Lock()
	mutate(&p.PassReport)
	p.mu.Unlock()
}

// IndexRepository runs one pass over the repository.
//
// Individual file failures are logged and skipped; they never fail the
// pass. An error from the caches or the sweep does: the snapshot is
// not persisted and the next pass redoes the work.
func (ix *FileIndexer) IndexRepository(ctx context.Context, repo *types.Repository, info *types.RepoHeadInfo, writer textindex.Writer) (types.PassReport, error) {
	logger := log.WithRepo(repo.Ref.String())
	timer := metrics.NewTimer()

	fileCache := cache.ForRepo(ix.db, repo.Ref)
	snapshot, err := fileCache.Retrieve(ctx)
	if err != nil {
		return types.PassReport{}, err
	}

	files, err := walk(repo.DiskPath, ix.ignoreGlobs)
	if err != nil {
		return types.PassReport{}, fmt.Errorf("failed to walk %s: %w", repo.DiskPath, err)
	}

	report := &passCounters{}
	report.Files = len(files)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.parallelism)
	for _, fileDiskPath := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			w := workload{
				fileDiskPath: fileDiskPath,
				repo:         repo,
				info:         info,
				snapshot:     snapshot,
				fileCache:    fileCache,
				writer:       writer,
				report:       report,
			}

			if err := ix.processFile(gctx, w); err != nil {
				logger.Warn().Err(err).Str("file", fileDiskPath).Msg("indexing failed; skipping")
				metrics.FilesFailedTotal.Inc()
				report.add(func(r *types.PassReport) { r.Failed++ })
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report.PassReport, err
	}

	if err := ix.sweep(ctx, snapshot, fileCache, writer, report); err != nil {
		return report.PassReport, err
	}

	if err := fileCache.Persist(ctx, snapshot); err != nil {
		return report.PassReport, err
	}

	report.Duration = timer.Duration()
	metrics.PassDuration.Observe(report.Duration.Seconds())
	logger.Info().
		Int("files", report.Files).
		Int("indexed", report.Indexed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("swept", report.SweptDocuments).
		Dur("took", report.Duration).
		Msg("file indexing finished")

	return report.PassReport, nil
}

// sweep deletes the full-text document of every entry not re-observed
// this pass and drops the entry from the snapshot. When the semantic
// side is on, the expired file's chunks are retired the same way.
func (ix *FileIndexer) sweep(ctx context.Context, snapshot *cache.Snapshot, fileCache *cache.FileCache, writer textindex.Writer, report *passCounters) error {
	type expired struct{ path, hash string }
	var stale []expired

	snapshot.Retain(func(path, hash string, fresh bool) bool {
		if !fresh {
			stale = append(stale, expired{path: path, hash: hash})
		}
		return fresh
	})

	for _, e := range stale {
		if err := writer.DeleteByTerm(textindex.FieldFileDiskPath, e.path); err != nil {
			return fmt.Errorf("failed to sweep document for %s: %w", e.path, err)
		}
		metrics.DocumentsSweptTotal.Inc()
		report.add(func(r *types.PassReport) { r.SweptDocuments++ })

		if ix.sem != nil {
			if err := ix.purgeChunks(ctx, fileCache, e.hash, report); err != nil {
				return err
			}
		}
	}
	return nil
}

// purgeChunks retires every chunk of a file content hash that is no
// longer present: opening the cache and committing with nothing
// observed deletes all of its rows and points.
func (ix *FileIndexer) purgeChunks(ctx context.Context, fileCache *cache.FileCache, fileHash string, report *passCounters) error {
	chunks, err := fileCache.ChunksForFile(ctx, fileHash)
	if err != nil {
		return err
	}

	stats, err := chunks.Commit(ctx, ix.sem.Vectors, ix.sem.Collection)
	if err != nil {
		return fmt.Errorf("failed to purge chunks for %s: %w", fileHash, err)
	}

	metrics.ChunksTotal.WithLabelValues("deleted").Add(float64(stats.Deleted))
	report.add(func(r *types.PassReport) { r.ChunksDeleted += stats.Deleted })
	return nil
}

// processFile is the per-file procedure.
func (ix *FileIndexer) processFile(ctx context.Context, w workload) error {
	logger := log.WithComponent("index")

	buf, err := os.ReadFile(w.fileDiskPath)
	if err != nil {
		// Unreadable files are skipped, not failed: the walker raced a
		// deletion or permissions got in the way.
		logger.Debug().Err(err).Str("file", w.fileDiskPath).Msg("read failed; skipping")
		return nil
	}

	relativePath, err := filepath.Rel(w.repo.DiskPath, w.fileDiskPath)
	if err != nil {
		return fmt.Errorf("failed to relativize %s: %w", w.fileDiskPath, err)
	}

	hash := content.FileHash(ix.schemaTag, buf)

	prevHash, outcome := w.snapshot.Upsert(w.fileDiskPath, hash)
	if outcome == cache.EntryUnchanged {
		// Contents are up to date in the cache; nothing to do.
		metrics.FilesSkippedTotal.Inc()
		w.report.add(func(r *types.PassReport) { r.Skipped++ })
		return nil
	}

	if outcome == cache.EntryChanged {
		// The path persists with new content: drop the superseded
		// document now rather than letting duplicates pile up until
		// the next sweep, and retire the old content's chunks.
		if err := w.writer.DeleteByTerm(textindex.FieldFileDiskPath, w.fileDiskPath); err != nil {
			return err
		}
		if ix.sem != nil {
			if err := ix.purgeChunks(ctx, w.fileCache, prevHash, w.report); err != nil {
				return err
			}
		}
	}

	lang := detectLang(w.fileDiskPath, w.info)
	locations := ix.extractSymbols(buf, lang, relativePath, w)
	flatSymbols := locations.Flatten(buf)

	serializedLocations, err := locations.Serialize()
	if err != nil {
		return err
	}

	// Ensure the content is newline-terminated before computing line
	// geometry.
	if len(buf) == 0 || buf[len(buf)-1] != '\n' {
		buf = append(buf, '\n')
	}

	lineEndIndices, lines := lineGeometry(buf)
	avgLineLength := float64(len(buf)) / float64(lines)

	var lastCommit uint64
	if w.info != nil {
		lastCommit = w.info.LastCommitUnixSecs
	}

	doc := textindex.Document{
		RepoDiskPath:       w.repo.DiskPath,
		FileDiskPath:       w.fileDiskPath,
		RelativePath:       relativePath,
		RepoRef:            w.repo.Ref.String(),
		RepoName:           w.repo.Ref.IndexedName(),
		Content:            string(buf),
		LineEndIndices:     lineEndIndices,
		Symbols:            flatSymbols,
		SymbolLocations:    serializedLocations,
		Lang:               strings.ToLower(lang),
		AvgLineLength:      avgLineLength,
		LastCommitUnixSecs: lastCommit,
	}

	if err := w.writer.AddDocument(doc); err != nil {
		return err
	}
	metrics.FilesIndexedTotal.Inc()
	w.report.add(func(r *types.PassReport) { r.Indexed++ })

	if ix.sem != nil {
		if err := ix.indexChunks(ctx, w, hash, relativePath, lang, buf); err != nil {
			return err
		}
	}

	return nil
}

// extractSymbols runs the fallback chain: syntax-aware extractor, then
// the precomputed tag map, then nothing. The file is indexed either
// way.
func (ix *FileIndexer) extractSymbols(buf []byte, lang, relativePath string, w workload) symbols.Locations {
	logger := log.WithComponent("index")

	if ix.extractor != nil {
		list, err := ix.extractor.Extract(buf, lang)
		if err == nil {
			return symbols.FromScopeGraph(list)
		}
		logger.Debug().Err(err).Str("lang", lang).Str("file", w.fileDiskPath).Msg("failed to build scope graph")
	}

	if w.info != nil {
		if tags, ok := w.info.Tags[relativePath]; ok {
			return symbols.FromTags(tags)
		}
	}

	logger.Debug().Str("lang", lang).Str("file", w.fileDiskPath).Msg("failed to build tags")
	return symbols.Empty()
}

// indexChunks feeds the file's chunks through the chunk cache and
// commits the resulting writes.
func (ix *FileIndexer) indexChunks(ctx context.Context, w workload, fileHash, relativePath, lang string, buf []byte) error {
	chunks, err := w.fileCache.ChunksForFile(ctx, fileHash)
	if err != nil {
		return err
	}

	embed := func(ctx context.Context, data []byte) ([]float32, error) {
		metrics.EmbeddingsTotal.Inc()
		return ix.sem.Embed(ctx, data)
	}

	for _, chunk := range semantic.SplitLines(buf, ix.sem.Window, ix.sem.Stride) {
		payload := semantic.Payload{
			RepoName:     w.repo.Ref.IndexedName(),
			RepoRef:      w.repo.Ref.String(),
			RelativePath: relativePath,
			Lang:         lang,
			Text:         string(chunk.Data),
			StartLine:    chunk.StartLine,
			EndLine:      chunk.EndLine,
			Branches:     branchesOf(w.info),
		}

		if err := chunks.Observe(ctx, chunk.Data, embed, payload); err != nil {
			return err
		}
	}

	timer := metrics.NewTimer()
	stats, err := chunks.Commit(ctx, ix.sem.Vectors, ix.sem.Collection)
	if err != nil {
		return err
	}
	timer.ObserveDuration(metrics.ChunkCommitDuration)

	metrics.ChunksTotal.WithLabelValues("inserted").Add(float64(stats.Inserted))
	metrics.ChunksTotal.WithLabelValues("updated").Add(float64(stats.Updated))
	metrics.ChunksTotal.WithLabelValues("deleted").Add(float64(stats.Deleted))
	w.report.add(func(r *types.PassReport) {
		r.ChunksInserted += stats.Inserted
		r.ChunksUpdated += stats.Updated
		r.ChunksDeleted += stats.Deleted
	})
	return nil
}

func branchesOf(info *types.RepoHeadInfo) []string {
	if info == nil {
		return nil
	}
	return info.Branches
}

// lineGeometry returns the little-endian u32 byte offset of every
// newline in buf, plus the line count. buf must be newline-terminated.
func lineGeometry(buf []byte) ([]byte, int) {
	lines := 0
	var offsets []byte
	for i, b := range buf {
		if b == '\n' {
			lines++
			offsets = binary.LittleEndian.AppendUint32(offsets, uint32(i))
		}
	}
	if lines == 0 {
		lines = 1
	}
	return offsets, lines
}

// DeleteByRepo removes every document of a repository from the
// full-text index. Used when a repository is retired.
func DeleteByRepo(writer textindex.Writer, repo *types.Repository) error {
	return writer.DeleteByTerm(textindex.FieldRepoDiskPath, repo.DiskPath)
}
