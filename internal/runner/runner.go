// Package runner drives a planned DeploymentLog through an Executor,
// updating logs and emitting component-version logs according to the
// configure-before-start rule (spec.md §4.F). Execution is strictly serial:
// there is no intra-deployment parallelism, by design (spec.md §1, §5).
package runner

import (
	"github.com/tosit-io/tdp/internal/catalog"
	"github.com/tosit-io/tdp/internal/clustervars"
	"github.com/tosit-io/tdp/internal/depmodel"
	"github.com/tosit-io/tdp/internal/executor"
	"github.com/tosit-io/tdp/internal/logger"
)

// StaleComponent seeds the runner's last_configured map so a subsequent
// start emits a component-version log without requiring a fresh configure
// in the same deployment (GLOSSARY: Stale component).
type StaleComponent struct {
	Key     depmodel.ComponentKey
	Version string
}

// DeploymentRunner is process-wide, reusable across many Run calls.
// Collections and the executor are treated as immutable for its lifetime.
type DeploymentRunner struct {
	collections      *catalog.Collections
	executor         executor.Executor
	clusterVariables clustervars.ClusterVariables
	staleComponents  []StaleComponent
	log              logger.Logger
}

// New constructs a DeploymentRunner (spec.md §4.F Construction).
func New(
	collections *catalog.Collections,
	exec executor.Executor,
	clusterVariables clustervars.ClusterVariables,
	staleComponents []StaleComponent,
	log logger.Logger,
) *DeploymentRunner {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &DeploymentRunner{
		collections:      collections,
		executor:         exec,
		clusterVariables: clusterVariables,
		staleComponents:  staleComponents,
		log:              log,
	}
}

// Run returns a DeploymentIterator over deploymentLog (spec.md §4.F Entry
// point). deploymentLog is mutated in place as the iterator is pulled.
func (r *DeploymentRunner) Run(deploymentLog *depmodel.DeploymentLog) *DeploymentIterator {
	lastConfigured := make(map[depmodel.ComponentKey]string, len(r.staleComponents))
	for _, stale := range r.staleComponents {
		lastConfigured[stale.Key] = stale.Version
	}

	return &DeploymentIterator{
		runner:         r,
		log:            deploymentLog,
		lastConfigured: lastConfigured,
		emitted:        make(map[depmodel.ComponentKey]bool),
	}
}
