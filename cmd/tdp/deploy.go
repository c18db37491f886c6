package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tosit-io/tdp/internal/depmodel"
	"github.com/tosit-io/tdp/internal/runner"
	"github.com/tosit-io/tdp/internal/store"
)

func newDeployCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Execute the currently planned deployment, step by step",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := app.CommandContext(cmd, "deploy")

			collections, _, err := app.LoadCollections(ctx)
			if err != nil {
				return err
			}

			s, err := app.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck

			deploymentLog, err := s.GetPlannedDeployment(ctx)
			if err != nil {
				return err
			}

			stale, err := loadStaleComponents(ctx, s, deploymentLog)
			if err != nil {
				return err
			}

			r := runner.New(collections, app.Executor(), app.ClusterVariables(), stale, log)
			it := r.Run(deploymentLog)

			for it.Next(ctx) {
				step := it.Current()
				log.Info(ctx, "operation finished", "operation", step.Operation.Operation, "state", step.Operation.State)
				if err := s.UpdateDeployment(ctx, deploymentLog); err != nil {
					return fmt.Errorf("persist deployment progress: %w", err)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderPlanSummary(deploymentLog))
			if deploymentLog.State == depmodel.DeploymentFailure {
				return fmt.Errorf("deployment %d failed", deploymentLog.ID)
			}
			return nil
		},
	}
	return cmd
}

// loadStaleComponents seeds the runner's last-configured map from the store
// so a start/restart operation that follows an already-current configure
// from a *previous* deployment still emits a version log (spec.md §4.F,
// GLOSSARY: Stale component).
func loadStaleComponents(ctx context.Context, s *store.Store, deploymentLog *depmodel.DeploymentLog) ([]runner.StaleComponent, error) {
	latest, err := s.LatestSuccessComponentVersions(ctx)
	if err != nil {
		return nil, err
	}
	stale := make([]runner.StaleComponent, 0, len(latest))
	for _, v := range latest {
		stale = append(stale, runner.StaleComponent{Key: v.Key(), Version: v.Version})
	}
	return stale, nil
}
