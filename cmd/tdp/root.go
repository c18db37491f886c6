package main

import (
	"github.com/spf13/cobra"

	"github.com/tosit-io/tdp/internal/logger"
)

func newRootCmd(app *AppContext) *cobra.Command {
	flags := app.flags

	cmd := &cobra.Command{
		Use:           "tdp",
		Short:         "tdp plans and runs ordered cluster deployments over a DAG of operations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !flags.verbose {
				return nil
			}
			verboseLogger, err := logger.New(logger.Options{
				Level:         "debug",
				HumanReadable: true,
				Component:     "cli",
			})
			if err != nil {
				return err
			}
			app.Logger = verboseLogger
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.collections, "collections", "./collections", "colon-separated list of operation-collection directories")
	cmd.PersistentFlags().StringVar(&flags.varsDir, "vars-dir", "./vars", "root directory of per-service/component cluster variables")
	cmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "sqlite://tdp.db", "deployment store DSN (sqlite://path or postgres://...)")
	cmd.PersistentFlags().StringVar(&flags.scriptsDir, "scripts-dir", "./scripts", "directory of operation shell scripts")

	cmd.AddCommand(newPlanCmd(app))
	cmd.AddCommand(newDeployCmd(app))
	cmd.AddCommand(newServiceVersionsCmd(app))
	cmd.AddCommand(newCollectionsCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
