package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/tosit-io/tdp/internal/logger"
)

// mockCatalogYAML is the same minimal end-to-end catalog internal/dag's
// tests build against (spec.md §8): mock_install/config/start/restart plus
// a noop mock_init, and a node-scoped component variant.
const mockCatalogYAML = `
operations:
  - name: mock_install
    host_names: [node1]
  - name: mock_config
    host_names: [node1]
  - name: mock_start
    host_names: [node1]
  - name: mock_restart
    host_names: [node1]
  - name: mock_init
    noop: true
  - name: mock_node_config
    host_names: [node1]
  - name: mock_node_start
    host_names: [node1]
  - name: mock_node_restart
    host_names: [node1]
`

// newTestApp builds an AppContext rooted at a throwaway temp directory tree:
// a collections dir seeded with mockCatalogYAML, an empty vars dir, and a
// fresh sqlite-backed store. Every command test exercises the real
// catalog/dag/store stack, not a mock of it.
func newTestApp(t *testing.T) *AppContext {
	t.Helper()

	root := t.TempDir()
	collectionsDir := filepath.Join(root, "collections")
	varsDir := filepath.Join(root, "vars")
	scriptsDir := filepath.Join(root, "scripts")
	require := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
	}

	require(os.MkdirAll(collectionsDir, 0o755))
	require(os.MkdirAll(varsDir, 0o755))
	require(os.MkdirAll(scriptsDir, 0o755))
	require(os.WriteFile(filepath.Join(collectionsDir, "mock.yml"), []byte(mockCatalogYAML), 0o644))

	return &AppContext{
		Logger: logger.NewNoOp(),
		flags: &rootFlags{
			collections: collectionsDir,
			varsDir:     varsDir,
			dsn:         "sqlite://" + filepath.Join(root, "tdp.db"),
			scriptsDir:  scriptsDir,
		},
	}
}

// newTestRoot returns an AppContext plus a run closure that executes the
// root command against it, capturing combined stdout/stderr — mirrors
// Streamy's executeListCommand-style test helpers. Every invocation
// constructs a fresh *cobra.Command (root.go's PersistentFlags registration
// resets app.flags to its hardcoded defaults each time), so run always
// re-supplies the test app's collection/vars/dsn/scripts paths ahead of the
// caller's subcommand args.
func newTestRoot(t *testing.T) (*AppContext, func(args ...string) (string, error)) {
	t.Helper()
	app := newTestApp(t)
	collections, varsDir, dsn, scriptsDir := app.flags.collections, app.flags.varsDir, app.flags.dsn, app.flags.scriptsDir

	run := func(args ...string) (string, error) {
		cmd := newRootCmd(app)
		buf := &bytes.Buffer{}
		cmd.SetOut(buf)
		cmd.SetErr(buf)
		global := []string{
			"--collections", collections,
			"--vars-dir", varsDir,
			"--dsn", dsn,
			"--scripts-dir", scriptsDir,
		}
		cmd.SetArgs(append(global, args...))
		err := cmd.Execute()
		return buf.String(), err
	}
	return app, run
}
