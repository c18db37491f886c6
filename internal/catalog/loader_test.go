package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCollectionFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestLoadMergesOperationsAcrossPaths(t *testing.T) {
	t.Parallel()

	dirA := t.TempDir()
	dirB := t.TempDir()

	writeCollectionFile(t, dirA, "hdfs.yml", `
operations:
  - name: hdfs_install
    host_names: [node1]
  - name: hdfs_config
    host_names: [node1]
  - name: hdfs_start
    host_names: [node1]
    depends_on: [hdfs_config]
`)
	writeCollectionFile(t, dirB, "hdfs_init.yml", `
operations:
  - name: hdfs_init
    noop: true
`)

	collections, err := Load(context.Background(), nil, []string{dirA, dirB})
	require.NoError(t, err)
	require.Len(t, collections.Operations, 4)

	entry := collections.Operations["hdfs_config"]
	require.Equal(t, "hdfs", entry.Service)
	require.Equal(t, "config", entry.Action)

	init := collections.Operations["hdfs_init"]
	require.True(t, init.Noop)

	require.Equal(t, []string{"hdfs_config"}, collections.ExplicitDependsOn("hdfs_start"))
}

func TestLoadRejectsDuplicateOperationName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCollectionFile(t, dir, "a.yml", "operations:\n  - name: hdfs_install\n")
	writeCollectionFile(t, dir, "b.yml", "operations:\n  - name: hdfs_install\n")

	_, err := Load(context.Background(), nil, []string{dir})
	require.Error(t, err)
	require.Contains(t, err.Error(), "redeclared")
}

func TestLoadRejectsMalformedOperationName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCollectionFile(t, dir, "bad.yml", "operations:\n  - name: onlyone\n")

	_, err := Load(context.Background(), nil, []string{dir})
	require.Error(t, err)
}

func TestLoadRejectsDanglingDependsOn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCollectionFile(t, dir, "a.yml", `
operations:
  - name: hdfs_install
    depends_on: [bogus_install]
`)

	_, err := Load(context.Background(), nil, []string{dir})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown operation")
}

func TestLoadRejectsEmptyCatalog(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := Load(context.Background(), nil, []string{dir})
	require.Error(t, err)
}
