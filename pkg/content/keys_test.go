package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFileHashDeterministic tests that equal inputs hash equally
func TestFileHashDeterministic(t *testing.T) {
	a := FileHash("v1", []byte("hello\n"))
	b := FileHash("v1", []byte("hello\n"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

// TestFileHashMixesSchemaVersion tests cache invalidation on layout changes
func TestFileHashMixesSchemaVersion(t *testing.T) {
	a := FileHash("v1", []byte("hello\n"))
	b := FileHash("v2", []byte("hello\n"))
	assert.NotEqual(t, a, b)
}

// TestFileHashContentSensitive tests that content changes change the hash
func TestFileHashContentSensitive(t *testing.T) {
	a := FileHash("v1", []byte("hi\n"))
	b := FileHash("v1", []byte("hello\n"))
	assert.NotEqual(t, a, b)
}

// TestChunkIDDeterministic tests that the chunk id is a pure function
func TestChunkIDDeterministic(t *testing.T) {
	fh := FileHash("v1", []byte("file"))

	a := ChunkID(fh, []byte("func main() {}"))
	b := ChunkID(fh, []byte("func main() {}"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, ChunkID(fh, []byte("func other() {}")))
}

// TestChunkIDScopedToFile tests that identical chunk bytes in different
// files produce different point ids
func TestChunkIDScopedToFile(t *testing.T) {
	chunk := []byte("shared chunk body")

	a := ChunkID(FileHash("v1", []byte("one")), chunk)
	b := ChunkID(FileHash("v1", []byte("two")), chunk)
	assert.NotEqual(t, a, b)
}

// TestBranchesHashOrderSensitive tests that branch order changes the digest
func TestBranchesHashOrderSensitive(t *testing.T) {
	tests := []struct {
		name  string
		a, b  []string
		equal bool
	}{
		{"same list", []string{"main", "dev"}, []string{"main", "dev"}, true},
		{"reordered", []string{"main", "dev"}, []string{"dev", "main"}, false},
		{"superset", []string{"main"}, []string{"main", "dev"}, false},
		{"empty vs nil", []string{}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.equal {
				assert.Equal(t, BranchesHash(tt.a), BranchesHash(tt.b))
			} else {
				assert.NotEqual(t, BranchesHash(tt.a), BranchesHash(tt.b))
			}
		})
	}
}
