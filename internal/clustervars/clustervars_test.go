package clustervars

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeVars(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestGetHashStableForIdenticalVariables(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeVars(t, filepath.Join(root, "hdfs", "vars.yml"), "heap_size: 512\n")

	vars := NewDirVariables(root)
	a, err := vars.GetHash("hdfs", "")
	require.NoError(t, err)
	b, err := vars.GetHash("hdfs", "")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestGetHashChangesWithVariableContent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeVars(t, filepath.Join(root, "hdfs", "vars.yml"), "heap_size: 512\n")
	vars := NewDirVariables(root)
	before, err := vars.GetHash("hdfs", "")
	require.NoError(t, err)

	writeVars(t, filepath.Join(root, "hdfs", "vars.yml"), "heap_size: 1024\n")
	after, err := vars.GetHash("hdfs", "")
	require.NoError(t, err)

	require.NotEqual(t, before, after)
}

func TestGetHashMergesComponentOverServiceScope(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeVars(t, filepath.Join(root, "hdfs", "vars.yml"), "heap_size: 512\n")
	writeVars(t, filepath.Join(root, "hdfs", "namenode", "vars.yml"), "heap_size: 2048\n")

	vars := NewDirVariables(root)
	service, err := vars.GetHash("hdfs", "")
	require.NoError(t, err)
	component, err := vars.GetHash("hdfs", "namenode")
	require.NoError(t, err)

	require.NotEqual(t, service, component)
}

func TestGetHashMissingFilesYieldsStableEmptyHash(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	vars := NewDirVariables(root)
	hash, err := vars.GetHash("unknown", "")
	require.NoError(t, err)
	other, err := vars.GetHash("other", "")
	require.NoError(t, err)
	require.Equal(t, hash, other)
}
