package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWalkHonorsIgnoreGlobs tests pruning of ignored trees
func TestWalkHonorsIgnoreGlobs(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, root, "a.txt")
	mustWrite(t, root, "src/main.go")
	mustWrite(t, root, ".git/HEAD")
	mustWrite(t, root, "vendor/dep/dep.go")

	files, err := walk(root, []string{"**/.git/**", "vendor/**"})
	require.NoError(t, err)

	rels := make([]string, len(files))
	for i, f := range files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		rels[i] = filepath.ToSlash(rel)
	}
	assert.ElementsMatch(t, []string{"a.txt", "src/main.go"}, rels)
}

// TestWalkEmptyDir tests an empty working copy
func TestWalkEmptyDir(t *testing.T) {
	files, err := walk(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

// TestIgnoredFilePattern tests plain file globs
func TestIgnoredFilePattern(t *testing.T) {
	assert.True(t, ignored("bundle.min.js", false, []string{"**/*.min.js"}))
	assert.True(t, ignored("dist/bundle.min.js", false, []string{"**/*.min.js"}))
	assert.False(t, ignored("main.js", false, []string{"**/*.min.js"}))
}

// TestDetectLang tests the language fallback chain
func TestDetectLang(t *testing.T) {
	assert.Equal(t, "Go", detectLang("/repo/main.go", nil))
	assert.Equal(t, "Rust", detectLang("/repo/lib.rs", nil))
	assert.Equal(t, "", detectLang("/repo/Makefile", nil))
}

func mustWrite(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x\n"), 0o644))
}
