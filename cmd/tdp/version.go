package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := fmt.Sprintf("version: %s\ncommit:  %s\nbuilt:   %s", version, commit, date)
			fmt.Fprintln(cmd.OutOrStdout(), boxStyle.Render(titleStyle.Render("tdp")+"\n"+lipgloss.NewStyle().Render(body)))
			return nil
		},
	}
	return cmd
}
