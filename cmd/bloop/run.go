package main

import (
	"context"
	"fmt"
	"os"

	"github.com/thomascherickal/bloop.ai/pkg/cache"
	"github.com/thomascherickal/bloop.ai/pkg/config"
	"github.com/thomascherickal/bloop.ai/pkg/index"
	"github.com/thomascherickal/bloop.ai/pkg/log"
	"github.com/thomascherickal/bloop.ai/pkg/repostore"
	"github.com/thomascherickal/bloop.ai/pkg/semantic"
	"github.com/thomascherickal/bloop.ai/pkg/textindex"
	"github.com/thomascherickal/bloop.ai/pkg/types"
)

// stores bundles every backend the indexer needs for a run.
type stores struct {
	db       *cache.DB
	idx      *textindex.Index
	registry *repostore.Store
	vectors  *semantic.Qdrant
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if err := os.MkdirAll(cfg.IndexDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index dir: %w", err)
	}

	db, err := cache.Open(ctx, cfg.IndexDir)
	if err != nil {
		return nil, err
	}

	idx, err := textindex.OpenIndex(cfg.IndexDir)
	if err != nil {
		db.Close()
		return nil, err
	}

	registry, err := repostore.Open(cfg.IndexDir)
	if err != nil {
		db.Close()
		idx.Close()
		return nil, err
	}

	s := &stores{db: db, idx: idx, registry: registry}

	if cfg.Vector.Enabled {
		vectors, err := semantic.NewQdrant(semantic.QdrantConfig{
			Host:   cfg.Vector.Host,
			Port:   cfg.Vector.Port,
			UseTLS: cfg.Vector.UseTLS,
		})
		if err != nil {
			s.close()
			return nil, err
		}
		if err := vectors.EnsureCollection(ctx, cfg.Vector.CollectionName, cfg.Vector.Dimension); err != nil {
			vectors.Close()
			s.close()
			return nil, err
		}
		s.vectors = vectors
	}

	return s, nil
}

func (s *stores) close() {
	if s.vectors != nil {
		s.vectors.Close()
	}
	s.registry.Close()
	s.idx.Close()
	s.db.Close()
}

func (s *stores) semanticIndexer(cfg config.Config) *index.SemanticIndexer {
	if s.vectors == nil {
		return nil
	}
	return &index.SemanticIndexer{
		Embed:      semantic.RemoteEmbedder(cfg.Vector.EmbedderURL),
		Vectors:    s.vectors,
		Collection: cfg.Vector.CollectionName,
	}
}

func runIndex(ctx context.Context, cfg config.Config, refs []string) error {
	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	repos, err := selectRepos(s.registry, refs)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		return fmt.Errorf("no repositories registered; use 'bloop repo add' first")
	}

	indexer := index.NewFileIndexer(
		s.db,
		cfg.SchemaVersionTag,
		cfg.Parallelism,
		cfg.IgnoreGlobs,
		nil,
		s.semanticIndexer(cfg),
	)

	var failed int
	for _, repo := range repos {
		logger := log.WithRepo(repo.Ref.String())
		_ = s.registry.SetStatus(repo.Ref, types.IndexStatusRunning)

		info := &types.RepoHeadInfo{Branches: repo.Branches}
		if _, err := indexer.IndexRepository(ctx, repo, info, s.idx); err != nil {
			logger.Error().Err(err).Msg("indexing pass failed")
			_ = s.registry.SetStatus(repo.Ref, types.IndexStatusError)
			failed++
			continue
		}
		_ = s.registry.SetStatus(repo.Ref, types.IndexStatusDone)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d repositories failed to index", failed, len(repos))
	}
	return nil
}

func runRemove(ctx context.Context, cfg config.Config, ref types.RepoRef) error {
	s, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	repo, err := s.registry.Get(ref)
	if err != nil {
		return err
	}

	if err := index.DeleteByRepo(s.idx, repo); err != nil {
		return err
	}
	if err := cache.ForRepo(s.db, ref).Delete(ctx); err != nil {
		return err
	}
	if err := s.registry.Delete(ref); err != nil {
		return err
	}

	fmt.Printf("Removed %s\n", ref)
	return nil
}

func selectRepos(registry *repostore.Store, refs []string) ([]*types.Repository, error) {
	if len(refs) == 0 {
		return registry.List()
	}

	repos := make([]*types.Repository, 0, len(refs))
	for _, ref := range refs {
		repo, err := registry.Get(types.RepoRef(ref))
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}
