package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tosit-io/tdp/internal/catalog"
	"github.com/tosit-io/tdp/internal/clustervars"
	"github.com/tosit-io/tdp/internal/dag"
	"github.com/tosit-io/tdp/internal/executor"
	"github.com/tosit-io/tdp/internal/logger"
	"github.com/tosit-io/tdp/internal/store"
)

// rootFlags are the persistent flags every subcommand inherits.
type rootFlags struct {
	verbose     bool
	collections string // colon-separated collection directories (spec.md §6)
	varsDir     string
	dsn         string
	scriptsDir  string
}

// AppContext bundles the long-lived services a subcommand needs: a logger
// and the knobs required to lazily open the catalog and store on demand.
// Mirrors Streamy's cmd/streamy AppContext, minus the TUI-facing fields this
// domain has no use for.
type AppContext struct {
	Logger logger.Logger
	flags  *rootFlags
}

// CommandContext returns the command's context (falling back to Background)
// together with a component-scoped logger.
func (a *AppContext) CommandContext(cmd *cobra.Command, component string) (context.Context, logger.Logger) {
	ctx := context.Background()
	if cmd != nil && cmd.Context() != nil {
		ctx = cmd.Context()
	}
	return ctx, a.Logger.With("component", component)
}

// LoadCollections parses --collections into Collections and a built Dag.
func (a *AppContext) LoadCollections(ctx context.Context) (*catalog.Collections, *dag.Dag, error) {
	paths := strings.Split(a.flags.collections, ":")
	collections, err := catalog.Load(ctx, a.Logger.With("component", "catalog"), paths)
	if err != nil {
		return nil, nil, fmt.Errorf("load collections: %w", err)
	}
	d, err := dag.BuildDag(collections)
	if err != nil {
		return nil, nil, fmt.Errorf("build dag: %w", err)
	}
	return collections, d, nil
}

// OpenStore connects to the configured DSN and applies pending migrations.
func (a *AppContext) OpenStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, a.flags.dsn)
}

// ClusterVariables returns the cluster-variables provider for --vars-dir.
func (a *AppContext) ClusterVariables() clustervars.ClusterVariables {
	return clustervars.NewDirVariables(a.flags.varsDir)
}

// Executor returns the default shell Executor rooted at --scripts-dir.
func (a *AppContext) Executor() executor.Executor {
	return executor.Shell{ScriptsDir: a.flags.scriptsDir}
}
