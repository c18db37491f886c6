package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tosit-io/tdp/internal/depmodel"
)

func TestMockAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	m := Mock{}
	state, logs := m.Execute(depmodel.Operation{Name: "mock_install"}, "node1", nil)
	require.Equal(t, depmodel.OperationSuccess, state)
	require.Contains(t, string(logs), "mock_install")
}

func TestOneShotFailingSucceedsOnceThenFails(t *testing.T) {
	t.Parallel()

	f := &OneShotFailing{}
	op := depmodel.Operation{Name: "mock_start"}

	state1, _ := f.Execute(op, "", nil)
	require.Equal(t, depmodel.OperationSuccess, state1)

	state2, logs2 := f.Execute(op, "", nil)
	require.Equal(t, depmodel.OperationFailure, state2)
	require.Contains(t, string(logs2), "FAILURE")

	state3, _ := f.Execute(op, "", nil)
	require.Equal(t, depmodel.OperationFailure, state3)
}

type panickingExecutor struct{}

func (panickingExecutor) Execute(op depmodel.Operation, host string, extraVars map[string]interface{}) (depmodel.OperationState, []byte) {
	panic("boom")
}

func TestSafeRecoversPanicAsFailure(t *testing.T) {
	t.Parallel()

	state, logs := Safe(panickingExecutor{}, depmodel.Operation{Name: "mock_install"}, "", nil)
	require.Equal(t, depmodel.OperationFailure, state)
	require.Contains(t, string(logs), "boom")
}
