package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newServiceVersionsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service-versions",
		Short: "Show the latest deployed version of every service/component",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _ := app.CommandContext(cmd, "service-versions")

			s, err := app.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close() //nolint:errcheck

			versions, err := s.LatestSuccessComponentVersions(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderComponentVersionsTable(versions))
			return nil
		},
	}
	return cmd
}
