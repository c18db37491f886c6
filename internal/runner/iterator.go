package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/tosit-io/tdp/internal/catalog"
	"github.com/tosit-io/tdp/internal/depmodel"
	"github.com/tosit-io/tdp/internal/executor"
)

// Step is one element of the lazy sequence a DeploymentIterator yields: an
// OperationLog that just reached a terminal state, plus the
// ComponentVersionLog emitted alongside it, if any (spec.md §4.F).
type Step struct {
	Operation        *depmodel.OperationLog
	ComponentVersion *depmodel.ComponentVersionLog
}

// DeploymentIterator is a lazy, pull-based sequence of Steps. Call Next
// until it returns false, reading Current after each successful call — the
// same consumer-paced shape as bufio.Scanner, chosen over a channel/
// goroutine producer because the runner has nothing to do between pulls
// that benefits from a second goroutine (spec.md §9: explicit step()
// method on a stateful runner is an equivalent, simpler strategy).
type DeploymentIterator struct {
	runner *DeploymentRunner
	log    *depmodel.DeploymentLog

	index   int
	done    bool
	current Step

	lastConfigured map[depmodel.ComponentKey]string
	emitted        map[depmodel.ComponentKey]bool
}

// DeploymentLog exposes the mutable log whose state reflects progress after
// each yielded step.
func (it *DeploymentIterator) DeploymentLog() *depmodel.DeploymentLog {
	return it.log
}

// Current returns the step produced by the most recent call to Next.
func (it *DeploymentIterator) Current() Step {
	return it.current
}

// Next executes the next operation in the plan and reports whether a step
// was produced. It returns false once every operation has been yielded, or
// once a FAILURE has short-circuited the deployment.
func (it *DeploymentIterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	if it.index >= len(it.log.Operations) {
		it.done = true
		return false
	}

	now := time.Now()
	if it.index == 0 {
		it.log.State = depmodel.DeploymentRunning
		it.log.StartTime = &now
	}

	opLog := it.log.Operations[it.index]
	opLog.State = depmodel.OperationRunning
	opLog.StartTime = &now

	entry, known := it.runner.collections.Operations[opLog.Operation]
	switch {
	case !known:
		opLog.State = depmodel.OperationFailure
		opLog.Logs = []byte(fmt.Sprintf("operation %q is no longer present in the catalog", opLog.Operation))
	case entry.Noop:
		opLog.State = depmodel.OperationSuccess
		opLog.Logs = nil
	default:
		host := ""
		if len(entry.HostNames) > 0 {
			host = entry.HostNames[0]
		}
		extraVars := map[string]interface{}{"service": entry.Service, "component": entry.Component}
		state, logs := executor.Safe(it.runner.executor, entry.Operation(), host, extraVars)
		opLog.State = state
		opLog.Logs = logs
	}

	end := time.Now()
	opLog.EndTime = &end

	var versionLog *depmodel.ComponentVersionLog
	if known {
		versionLog = it.maybeEmitVersion(ctx, entry, opLog.State)
		if versionLog != nil {
			versionLog.DeploymentID = it.log.ID
			it.log.ComponentVersion = append(it.log.ComponentVersion, versionLog)
		}
	}

	it.current = Step{Operation: opLog, ComponentVersion: versionLog}

	if opLog.State == depmodel.OperationFailure {
		it.log.State = depmodel.DeploymentFailure
		it.log.EndTime = &end
		it.done = true
		return true
	}

	it.index++
	if it.index == len(it.log.Operations) {
		it.log.State = depmodel.DeploymentSuccess
		it.log.EndTime = &end
		it.done = true
	}
	return true
}

// maybeEmitVersion implements the configure-then-start pairing rule
// (spec.md §4.F). On a *_config SUCCESS it records the current variables
// hash; on a *_start/*_restart SUCCESS it emits the recorded hash exactly
// once per (service, component) pair within this deployment.
func (it *DeploymentIterator) maybeEmitVersion(ctx context.Context, entry catalog.Entry, state depmodel.OperationState) *depmodel.ComponentVersionLog {
	if state != depmodel.OperationSuccess {
		return nil
	}

	key := depmodel.ComponentKey{Service: entry.Service, Component: entry.Component}

	switch {
	case depmodel.IsConfigAction(entry.Action):
		hash, err := it.runner.clusterVariables.GetHash(entry.Service, entry.Component)
		if err != nil {
			it.runner.log.Warn(ctx, "failed to hash variables for configure operation", "operation", entry.Name, "error", err)
			return nil
		}
		it.lastConfigured[key] = hash
		return nil

	case depmodel.IsStartAction(entry.Action):
		hash, configured := it.lastConfigured[key]
		if !configured || it.emitted[key] {
			return nil
		}
		it.emitted[key] = true
		return &depmodel.ComponentVersionLog{
			Service:   entry.Service,
			Component: entry.Component,
			Version:   hash,
		}

	default:
		return nil
	}
}
