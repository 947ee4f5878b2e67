package semantic

import (
	"context"

	"github.com/google/uuid"
)

// DefaultCollectionName is used when no collection is configured.
const DefaultCollectionName = "documents"

// Embedder turns chunk bytes into an embedding vector. It must be pure
// and safe for parallel invocation; the indexing pipeline calls it from
// many workers at once.
type Embedder func(ctx context.Context, data []byte) ([]float32, error)

// Payload is the metadata attached to every vector point. Branches is
// the ordered list of branches the chunk is visible on; its order is
// significant and must match what was hashed into the chunk-cache row.
type Payload struct {
	RepoName     string   `json:"repo_name"`
	RepoRef      string   `json:"repo_ref"`
	RelativePath string   `json:"relative_path"`
	Lang         string   `json:"lang,omitempty"`
	Text         string   `json:"text"`
	StartLine    uint32   `json:"start_line"`
	EndLine      uint32   `json:"end_line"`
	Branches     []string `json:"branches"`
}

// Map renders the payload as the generic key/value form the vector
// store accepts.
func (p Payload) Map() map[string]any {
	return map[string]any{
		"repo_name":     p.RepoName,
		"repo_ref":      p.RepoRef,
		"relative_path": p.RelativePath,
		"lang":          p.Lang,
		"text":          p.Text,
		"start_line":    int64(p.StartLine),
		"end_line":      int64(p.EndLine),
		"branches":      BranchesValue(p.Branches),
	}
}

// BranchesValue renders an ordered branch list as a payload value.
func BranchesValue(branches []string) []any {
	out := make([]any, len(branches))
	for i, b := range branches {
		out[i] = b
	}
	return out
}

// Point is one pending vector-store upsert.
type Point struct {
	ID      uuid.UUID
	Vector  []float32
	Payload Payload
}

// VectorStore is the contract the caches require from the vector
// database. All writes are pipelined on the server: a nil error means
// the write was accepted, not that it is visible to queries. Callers
// must not attempt read-back verification.
type VectorStore interface {
	// UpsertPoints writes a non-empty batch of points.
	UpsertPoints(ctx context.Context, collection string, points []Point) error

	// DeletePoints removes a non-empty batch of points by id.
	DeletePoints(ctx context.Context, collection string, ids []uuid.UUID) error

	// SetPayload overwrites payload keys on a non-empty set of points.
	SetPayload(ctx context.Context, collection string, ids []uuid.UUID, payload map[string]any) error
}
