package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeployRunsPlannedNoopDeployment(t *testing.T) {
	_, run := newTestRoot(t)

	_, err := run("plan", "ops", "--operations", "mock_init")
	require.NoError(t, err)

	out, err := run("deploy")
	require.NoError(t, err)
	require.Contains(t, out, "SUCCESS")
	require.Contains(t, out, "mock_init")
}

func TestDeployFailsWithoutPlannedDeployment(t *testing.T) {
	_, run := newTestRoot(t)

	_, err := run("deploy")
	require.Error(t, err)
}

func TestDeployFailsWhenScriptMissing(t *testing.T) {
	_, run := newTestRoot(t)

	_, err := run("plan", "ops", "--operations", "mock_install")
	require.NoError(t, err)

	out, err := run("deploy")
	require.Error(t, err)
	require.Contains(t, out, "FAILURE")
}
