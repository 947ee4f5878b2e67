package repostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomascherickal/bloop.ai/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// TestPutGet tests basic record round trips
func TestPutGet(t *testing.T) {
	s := openTestStore(t)

	repo := &types.Repository{
		Ref:      "local//src/demo",
		Name:     "demo",
		DiskPath: "/src/demo",
		Branches: []string{"main"},
	}
	require.NoError(t, s.Put(repo))

	got, err := s.Get("local//src/demo")
	require.NoError(t, err)
	assert.Equal(t, repo.DiskPath, got.DiskPath)
	assert.Equal(t, types.IndexStatusNever, got.LastIndexStatus)
	assert.False(t, got.CreatedAt.IsZero())
}

// TestGetMissing tests the not-found path
func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("local//nope")
	assert.Error(t, err)
}

// TestListAndDelete tests enumeration and removal
func TestListAndDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(&types.Repository{Ref: "local//a", DiskPath: "/a"}))
	require.NoError(t, s.Put(&types.Repository{Ref: "local//b", DiskPath: "/b"}))

	repos, err := s.List()
	require.NoError(t, err)
	assert.Len(t, repos, 2)

	require.NoError(t, s.Delete("local//a"))
	repos, err = s.List()
	require.NoError(t, err)
	assert.Len(t, repos, 1)
	assert.Equal(t, types.RepoRef("local//b"), repos[0].Ref)
}

// TestSetStatus tests pass outcome bookkeeping
func TestSetStatus(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(&types.Repository{Ref: "local//a", DiskPath: "/a"}))
	require.NoError(t, s.SetStatus("local//a", types.IndexStatusDone))

	got, err := s.Get("local//a")
	require.NoError(t, err)
	assert.Equal(t, types.IndexStatusDone, got.LastIndexStatus)
	assert.NotZero(t, got.LastIndexUnixSecs)
}
