package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func TestSyncCollectionsClonesIntoMissingDest(t *testing.T) {
	ctx := t.Context()
	root := t.TempDir()
	origin := initBareTestRepo(t, root)
	dest := filepath.Join(root, "checkout")

	var logged []string
	err := syncCollections(ctx, origin, dest, "", func(msg string, _ ...interface{}) { logged = append(logged, msg) })
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dest, "mock.yml"))
	require.Contains(t, logged, "cloned collection repository")
}

func TestSyncCollectionsPullsExistingDest(t *testing.T) {
	ctx := t.Context()
	root := t.TempDir()
	origin := initBareTestRepo(t, root)
	dest := filepath.Join(root, "checkout")

	require.NoError(t, syncCollections(ctx, origin, dest, "", nopLog))
	err := syncCollections(ctx, origin, dest, "", nopLog)
	require.NoError(t, err)
}

func TestCollectionsSyncRequiresDest(t *testing.T) {
	_, run := newTestRoot(t)
	_, err := run("collections", "sync", "https://example.invalid/collections.git")
	require.Error(t, err)
}

func nopLog(string, ...interface{}) {}

// initBareTestRepo creates a working repository with a single commit under
// root/origin and returns its filesystem path, suitable as a go-git clone
// source for syncCollections' tests.
func initBareTestRepo(t *testing.T, root string) string {
	t.Helper()
	path := filepath.Join(root, "origin")
	repo, err := git.PlainInit(path, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(path, "mock.yml"), []byte(mockCatalogYAML), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("mock.yml")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: testSignature(),
	})
	require.NoError(t, err)
	return path
}

func testSignature() *object.Signature {
	return &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(0, 0)}
}
