package main

import (
	"context"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"
)

func newCollectionsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage operation-collection directories",
	}
	cmd.AddCommand(newCollectionsSyncCmd(app))
	return cmd
}

// newCollectionsSyncCmd clones (or pulls) a git-hosted operation-collection
// repository into dest, grounded on Streamy's repo plugin
// (internal/plugins/repo) clone/pull handling.
func newCollectionsSyncCmd(app *AppContext) *cobra.Command {
	var dest, branch string

	cmd := &cobra.Command{
		Use:   "sync <git-url>",
		Short: "Clone or update a collection repository from git",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, log := app.CommandContext(cmd, "collections-sync")
			url := args[0]
			if dest == "" {
				return fmt.Errorf("collections sync: --dest is required")
			}
			return syncCollections(ctx, url, dest, branch, func(msg string, kv ...interface{}) { log.Info(ctx, msg, kv...) })
		},
	}

	cmd.Flags().StringVar(&dest, "dest", "", "destination directory for the collection repository")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to check out (default: repository default)")
	cmd.MarkFlagRequired("dest") //nolint:errcheck

	return cmd
}

func syncCollections(ctx context.Context, url, dest, branch string, logf func(string, ...interface{})) error {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		opts := &git.CloneOptions{URL: url}
		if branch != "" {
			opts.ReferenceName = branchRef(branch)
			opts.SingleBranch = true
		}
		if _, err := git.PlainCloneContext(ctx, dest, false, opts); err != nil {
			return fmt.Errorf("clone %s: %w", url, err)
		}
		logf("cloned collection repository", "url", url, "dest", dest)
		return nil
	}

	repo, err := git.PlainOpen(dest)
	if err != nil {
		return fmt.Errorf("open %s: %w", dest, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree %s: %w", dest, err)
	}
	if err := wt.PullContext(ctx, &git.PullOptions{}); err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("pull %s: %w", dest, err)
	}
	logf("updated collection repository", "dest", dest)
	return nil
}

func branchRef(branch string) plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(branch)
}
