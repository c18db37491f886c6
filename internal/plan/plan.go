// Package plan assembles a concrete, ordered DeploymentLog from a DAG
// query, a raw operation list, a failed deployment (resume), or a
// reconfiguration intent (spec.md §4.C).
package plan

import (
	"fmt"

	"github.com/tosit-io/tdp/internal/catalog"
	"github.com/tosit-io/tdp/internal/clustervars"
	"github.com/tosit-io/tdp/internal/dag"
	"github.com/tosit-io/tdp/internal/depmodel"
	tdperrors "github.com/tosit-io/tdp/pkg/errors"
)

// FromDag builds a DeploymentLog{type=DAG} from a DAG query (spec.md
// §4.C). filterType is ignored when filterExpression is empty.
func FromDag(
	d *dag.Dag,
	sources, targets []string,
	filterExpression string,
	filterType depmodel.FilterType,
	restart bool,
) (*depmodel.DeploymentLog, error) {
	operations, err := d.GetOperations(sources, targets, filterExpression, filterType, restart)
	if err != nil {
		return nil, err
	}
	if len(operations) == 0 {
		return nil, tdperrors.NewEmptyDeploymentError()
	}

	names := make([]string, len(operations))
	for i, op := range operations {
		names[i] = op.Name
	}

	log := depmodel.NewPlanned(depmodel.DeploymentTypeDAG, names)
	log.Sources = append([]string(nil), sources...)
	log.Targets = append([]string(nil), targets...)
	log.FilterExpression = filterExpression
	log.FilterType = filterType
	log.Restart = restart
	return log, nil
}

// FromOperations builds a DeploymentLog{type=OPERATIONS} that executes the
// caller-supplied sequence verbatim: it is never reordered (spec.md §4.C,
// §8 invariant 2). Every name must be a known operation.
func FromOperations(collections *catalog.Collections, names []string) (*depmodel.DeploymentLog, error) {
	if len(names) == 0 {
		return nil, tdperrors.NewEmptyDeploymentError()
	}

	var unknown []string
	for _, name := range names {
		if !collections.Has(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, tdperrors.NewUnknownNodeError(unknown)
	}

	return depmodel.NewPlanned(depmodel.DeploymentTypeOperations, names), nil
}

// FromFailedDeployment builds a DeploymentLog{type=RESUME} containing the
// failed operation and every subsequent operation from failed, in the same
// order (spec.md §4.C, §8 invariant 6).
func FromFailedDeployment(failed *depmodel.DeploymentLog) (*depmodel.DeploymentLog, error) {
	index := failed.IndexOfFirstFailure()
	if index < 0 {
		return nil, fmt.Errorf("plan: failed deployment %d has no FAILURE operation to resume from", failed.ID)
	}

	names := failed.OperationNames()[index:]
	if len(names) == 0 {
		return nil, tdperrors.NewEmptyDeploymentError()
	}

	return depmodel.NewPlanned(depmodel.DeploymentTypeResume, names), nil
}

// FromReconfigure builds a DeploymentLog{type=RECONFIGURE} (spec.md §4.C,
// §9: present in the model but disabled by default — see DESIGN.md). For
// every component whose currently-deployed version differs from the
// latest variables hash, it includes the component's *_config and *_start
// (or *_restart, when restart applies and the catalog has one) operations.
func FromReconfigure(
	d *dag.Dag,
	collections *catalog.Collections,
	vars clustervars.ClusterVariables,
	deployed []*depmodel.ComponentVersionLog,
	restart bool,
) (*depmodel.DeploymentLog, error) {
	stale, err := staleKeys(vars, deployed)
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, tdperrors.NewEmptyDeploymentError()
	}

	selected := make(map[string]struct{})
	for name, entry := range collections.Operations {
		key := depmodel.ComponentKey{Service: entry.Service, Component: entry.Component}
		if _, isStale := stale[key]; !isStale {
			continue
		}
		if depmodel.IsConfigAction(entry.Action) || entry.Action == "start" {
			selected[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(selected))
	for _, name := range d.Operations() {
		if _, ok := selected[name]; ok {
			names = append(names, name)
		}
	}
	if restart {
		names = substituteRestart(collections, names)
	}

	if len(names) == 0 {
		return nil, tdperrors.NewEmptyDeploymentError()
	}

	return depmodel.NewPlanned(depmodel.DeploymentTypeReconfigure, names), nil
}

// staleKeys returns the (service, component) pairs whose latest deployed
// version differs from the variables' current hash.
func staleKeys(vars clustervars.ClusterVariables, deployed []*depmodel.ComponentVersionLog) (map[depmodel.ComponentKey]struct{}, error) {
	latest := make(map[depmodel.ComponentKey]string)
	for _, entry := range deployed {
		latest[entry.Key()] = entry.Version
	}

	stale := make(map[depmodel.ComponentKey]struct{})
	for key, version := range latest {
		current, err := vars.GetHash(key.Service, key.Component)
		if err != nil {
			return nil, fmt.Errorf("plan: hash variables for %s: %w", key, err)
		}
		if current != version {
			stale[key] = struct{}{}
		}
	}
	return stale, nil
}

func substituteRestart(collections *catalog.Collections, names []string) []string {
	out := make([]string, len(names))
	for i, name := range names {
		restartName, ok := depmodel.RestartNameFor(name)
		if ok && collections.Has(restartName) {
			out[i] = restartName
		} else {
			out[i] = name
		}
	}
	return out
}
