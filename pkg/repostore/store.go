package repostore

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/thomascherickal/bloop.ai/pkg/types"
)

var bucketRepos = []byte("repositories")

// Store is the persistent registry of repositories known to the
// indexer: where each working copy lives, which branches it carries,
// and how its last pass went.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the registry database under indexDir.
func Open(indexDir string) (*Store, error) {
	dbPath := filepath.Join(indexDir, "repos.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open repo registry: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRepos)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create repo bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Put creates or replaces a repository record.
func (s *Store) Put(repo *types.Repository) error {
	if repo.CreatedAt.IsZero() {
		repo.CreatedAt = time.Now().UTC()
	}
	if repo.LastIndexStatus == "" {
		repo.LastIndexStatus = types.IndexStatusNever
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRepos)
		data, err := json.Marshal(repo)
		if err != nil {
			return err
		}
		return b.Put([]byte(repo.Ref), data)
	})
}

// Get returns the repository stored under ref.
func (s *Store) Get(ref types.RepoRef) (*types.Repository, error) {
	var repo types.Repository
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRepos)
		data := b.Get([]byte(ref))
		if data == nil {
			return fmt.Errorf("repository not found: %s", ref)
		}
		return json.Unmarshal(data, &repo)
	})
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// List returns all registered repositories.
func (s *Store) List() ([]*types.Repository, error) {
	var repos []*types.Repository
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRepos)
		return b.ForEach(func(k, v []byte) error {
			var repo types.Repository
			if err := json.Unmarshal(v, &repo); err != nil {
				return err
			}
			repos = append(repos, &repo)
			return nil
		})
	})
	return repos, err
}

// Delete removes a repository record.
func (s *Store) Delete(ref types.RepoRef) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRepos)
		return b.Delete([]byte(ref))
	})
}

// SetStatus records the outcome of an indexing pass.
func (s *Store) SetStatus(ref types.RepoRef, status types.IndexStatus) error {
	repo, err := s.Get(ref)
	if err != nil {
		return err
	}

	repo.LastIndexStatus = status
	if status == types.IndexStatusDone {
		repo.LastIndexUnixSecs = time.Now().Unix()
	}
	return s.Put(repo)
}
