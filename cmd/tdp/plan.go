package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tosit-io/tdp/internal/depmodel"
	"github.com/tosit-io/tdp/internal/plan"
	"github.com/tosit-io/tdp/internal/store"
	tdperrors "github.com/tosit-io/tdp/pkg/errors"
)

func newPlanCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Create a deployment plan",
	}
	cmd.AddCommand(newPlanDagCmd(app))
	cmd.AddCommand(newPlanOpsCmd(app))
	cmd.AddCommand(newPlanResumeCmd(app))
	cmd.AddCommand(newPlanReconfigureCmd(app))
	return cmd
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// savePlanned opens the store and persists log, overwriting any existing
// PLANNED deployment — there can only ever be one (spec.md §3).
func savePlanned(ctx context.Context, app *AppContext, log *depmodel.DeploymentLog) error {
	s, err := app.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	return saveOrOverwritePlanned(ctx, s, log)
}

// saveOrOverwritePlanned persists log against an already-open store. A
// PlannedConflictError means a PLANNED row already exists; per spec.md §7
// the new plan takes over that row's id rather than being rejected.
func saveOrOverwritePlanned(ctx context.Context, s *store.Store, log *depmodel.DeploymentLog) error {
	err := s.SaveDeployment(ctx, log)
	if err == nil {
		return nil
	}

	var conflict *tdperrors.PlannedConflictError
	if !isPlannedConflict(err, &conflict) {
		return err
	}

	log.ID = conflict.ExistingID
	for _, op := range log.Operations {
		op.DeploymentID = log.ID
	}
	return s.UpdateDeployment(ctx, log)
}

func isPlannedConflict(err error, target **tdperrors.PlannedConflictError) bool {
	conflict, ok := err.(*tdperrors.PlannedConflictError)
	if ok {
		*target = conflict
	}
	return ok
}

type planDagOptions struct {
	sources, targets string
	filter           string
	glob, regex      bool
	restart          bool
}

func newPlanDagCmd(app *AppContext) *cobra.Command {
	opts := planDagOptions{}

	cmd := &cobra.Command{
		Use:   "dag",
		Short: "Plan a deployment by selecting a DAG slice (sources/targets/filter)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := app.CommandContext(cmd, "plan-dag")

			filterType := depmodel.FilterTypeGlob
			if opts.regex {
				filterType = depmodel.FilterTypeRegex
			}
			if opts.filter == "" {
				filterType = ""
			}

			_, d, err := app.LoadCollections(ctx)
			if err != nil {
				return err
			}

			sources := splitCSV(opts.sources)
			targets := splitCSV(opts.targets)

			deploymentLog, err := plan.FromDag(d, sources, targets, opts.filter, filterType, opts.restart)
			if err != nil {
				return err
			}

			if err := savePlanned(ctx, app, deploymentLog); err != nil {
				return err
			}
			log.Info(ctx, "deployment plan created", "type", deploymentLog.DeploymentType, "operations", len(deploymentLog.Operations))
			fmt.Fprintln(cmd.OutOrStdout(), renderPlanSummary(deploymentLog))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.sources, "sources", "", "comma-separated operations where the run starts")
	cmd.Flags().StringVar(&opts.targets, "targets", "", "comma-separated operations where the run stops")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "match filter expression against the selected operations")
	cmd.Flags().BoolVarP(&opts.glob, "glob", "g", false, "filter expression is a glob (default)")
	cmd.Flags().BoolVarP(&opts.regex, "regex", "r", false, "filter expression is a regex")
	cmd.Flags().BoolVar(&opts.restart, "restart", false, "replace start operations with their restart counterpart")

	return cmd
}

func newPlanOpsCmd(app *AppContext) *cobra.Command {
	var operations string

	cmd := &cobra.Command{
		Use:   "ops",
		Short: "Plan a deployment from an explicit, ordered list of operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := app.CommandContext(cmd, "plan-ops")

			collections, _, err := app.LoadCollections(ctx)
			if err != nil {
				return err
			}

			names := splitCSV(operations)
			deploymentLog, err := plan.FromOperations(collections, names)
			if err != nil {
				return err
			}

			if err := savePlanned(ctx, app, deploymentLog); err != nil {
				return err
			}
			log.Info(ctx, "deployment plan created", "type", deploymentLog.DeploymentType, "operations", len(deploymentLog.Operations))
			fmt.Fprintln(cmd.OutOrStdout(), renderPlanSummary(deploymentLog))
			return nil
		},
	}

	cmd.Flags().StringVar(&operations, "operations", "", "comma-separated, ordered list of operation names")
	cmd.MarkFlagRequired("operations") //nolint:errcheck

	return cmd
}

func newPlanResumeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Plan a deployment that resumes the last failed deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := app.CommandContext(cmd, "plan-resume")

			s, err := app.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck

			last, err := s.GetLastDeployment(ctx)
			if err != nil {
				return err
			}
			if last.State != depmodel.DeploymentFailure {
				return fmt.Errorf("plan resume: last deployment (id=%d) is not in state FAILURE", last.ID)
			}

			deploymentLog, err := plan.FromFailedDeployment(last)
			if err != nil {
				return err
			}

			if err := saveOrOverwritePlanned(ctx, s, deploymentLog); err != nil {
				return err
			}

			log.Info(ctx, "resume plan created", "from_deployment", last.ID, "operations", len(deploymentLog.Operations))
			fmt.Fprintln(cmd.OutOrStdout(), renderPlanSummary(deploymentLog))
			return nil
		},
	}
	return cmd
}

func newPlanReconfigureCmd(app *AppContext) *cobra.Command {
	var restart bool

	cmd := &cobra.Command{
		Use:   "reconfigure",
		Short: "Plan a deployment that reconfigures (and restarts) stale components",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := app.CommandContext(cmd, "plan-reconfigure")

			collections, d, err := app.LoadCollections(ctx)
			if err != nil {
				return err
			}

			s, err := app.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck

			deployed, err := s.LatestSuccessComponentVersions(ctx)
			if err != nil {
				return err
			}

			deploymentLog, err := plan.FromReconfigure(d, collections, app.ClusterVariables(), deployed, restart)
			if err != nil {
				return err
			}

			if err := savePlanned(ctx, app, deploymentLog); err != nil {
				return err
			}
			log.Info(ctx, "reconfigure plan created", "operations", len(deploymentLog.Operations))
			fmt.Fprintln(cmd.OutOrStdout(), renderPlanSummary(deploymentLog))
			return nil
		},
	}

	cmd.Flags().BoolVar(&restart, "restart", false, "replace start operations with their restart counterpart")
	return cmd
}
