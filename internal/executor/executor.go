// Package executor defines the pluggable single-operation execution
// contract (spec.md §4.E) and ships a mock pair used by tests plus a
// shell-script-backed default implementation.
package executor

import (
	"fmt"

	"github.com/tosit-io/tdp/internal/depmodel"
)

// Executor executes a single operation and reports its outcome. The
// runner treats Execute as an opaque, synchronous, blocking call —
// implementations must not spawn goroutines the runner would need to wait
// on separately.
type Executor interface {
	Execute(op depmodel.Operation, host string, extraVars map[string]interface{}) (depmodel.OperationState, []byte)
}

// Safe wraps an Executor call so that an unexpected panic never escapes to
// the runner: it is converted to FAILURE with the panic text captured as
// logs, per spec.md §4.E and §7 (ExecutorFailure is recovered locally,
// never propagated as an exception).
func Safe(e Executor, op depmodel.Operation, host string, extraVars map[string]interface{}) (state depmodel.OperationState, logs []byte) {
	defer func() {
		if r := recover(); r != nil {
			state = depmodel.OperationFailure
			logs = []byte(fmt.Sprintf("panic in executor: %v", r))
		}
	}()
	return e.Execute(op, host, extraVars)
}
