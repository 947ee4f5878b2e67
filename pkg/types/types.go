package types

import (
	"path/filepath"
	"strings"
	"time"
)

// RepoRef is the stable identifier of a repository, of the form:
//
//	local: local//path/to/repo
//	github: github.com/org/repo
//
// It is the foreign key tying together the file cache, the chunk cache
// and the full-text index.
type RepoRef string

// IndexedName returns the short name used in search documents.
// Local repositories use their directory name, remote ones keep the
// full host-qualified form.
func (r RepoRef) IndexedName() string {
	s := string(r)
	if rest, ok := strings.CutPrefix(s, "local/"); ok {
		return filepath.Base(rest)
	}
	return s
}

func (r RepoRef) String() string {
	return string(r)
}

// Repository describes a working copy on disk.
type Repository struct {
	Ref      RepoRef           `json:"ref"`
	Name     string            `json:"name"`
	DiskPath string            `json:"disk_path"`
	Branches []string          `json:"branches,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`

	LastIndexUnixSecs int64       `json:"last_index_unix_secs,omitempty"`
	LastIndexStatus   IndexStatus `json:"last_index_status,omitempty"`
	CreatedAt         time.Time   `json:"created_at,omitempty"`
}

// IndexStatus represents the outcome of the most recent indexing pass
type IndexStatus string

const (
	IndexStatusNever   IndexStatus = "never"
	IndexStatusRunning IndexStatus = "running"
	IndexStatusDone    IndexStatus = "done"
	IndexStatusError   IndexStatus = "error"
)

// RepoHeadInfo carries everything known about the repository head at
// the time a pass starts: branch visibility, last commit time, and the
// precomputed language and tags maps the per-file workers consult.
type RepoHeadInfo struct {
	Branches           []string
	LastCommitUnixSecs uint64

	// Langs maps absolute file paths to a language tag. Paths missing
	// from the map fall back to extension detection.
	Langs map[string]string

	// Tags maps repo-relative paths to ctags-style symbols, used when
	// the syntax-aware extractor fails.
	Tags map[string][]TaggedSymbol
}

// TaggedSymbol is one ctags-style entry from the fallback tag map.
type TaggedSymbol struct {
	Name      string `json:"name"`
	Kind      string `json:"kind,omitempty"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
}

// PassReport summarizes one indexing pass over a repository.
type PassReport struct {
	Files          int
	Indexed        int
	Skipped        int
	Failed         int
	SweptDocuments int
	ChunksInserted int
	ChunksUpdated  int
	ChunksDeleted  int
	Duration       time.Duration
}
