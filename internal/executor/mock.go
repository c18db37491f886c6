package executor

import (
	"fmt"

	"github.com/tosit-io/tdp/internal/depmodel"
)

// Mock always reports SUCCESS, logging the operation name — the trivial
// always-success implementation spec.md §9 asks tests to use.
type Mock struct{}

func (Mock) Execute(op depmodel.Operation, host string, extraVars map[string]interface{}) (depmodel.OperationState, []byte) {
	return depmodel.OperationSuccess, []byte(fmt.Sprintf("%s LOG SUCCESS", op.Name))
}

// OneShotFailing succeeds exactly once, then reports FAILURE on every
// subsequent call — the one-shot-then-fail implementation spec.md §9 asks
// tests to use, to exercise the resume-after-failure path.
type OneShotFailing struct {
	called bool
}

func (f *OneShotFailing) Execute(op depmodel.Operation, host string, extraVars map[string]interface{}) (depmodel.OperationState, []byte) {
	if f.called {
		return depmodel.OperationFailure, []byte(fmt.Sprintf("%s LOG FAILURE", op.Name))
	}
	f.called = true
	return depmodel.OperationSuccess, []byte(fmt.Sprintf("%s LOG SUCCESS", op.Name))
}
