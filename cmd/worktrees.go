package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendrilhq/tendril-core/cli"
)

// NewWorktreesCmd creates the `worktrees` command
func NewWorktreesCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"worktrees [path]",
		"List the worktrees attached to a repository",
	)
	cmd.Args = cobra.MaximumNArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts := cli.GetOptions(cmd)
		handler := cli.NewErrorHandler(opts.Verbose)

		repoPath, err := repoArg(args)
		if err != nil {
			return handler.Handle(err)
		}

		tr, err := newTracker(cmd)
		if err != nil {
			return handler.Handle(err)
		}
		defer tr.Close()

		worktrees, err := tr.ListWorktrees(cmd.Context(), repoPath)
		if err != nil {
			return handler.Handle(err)
		}

		if opts.JSONOutput {
			return json.NewEncoder(os.Stdout).Encode(worktrees)
		}

		for _, wt := range worktrees {
			branch := wt.Branch
			switch {
			case wt.Bare:
				branch = "(bare)"
			case branch == "":
				branch = "(detached)"
			}
			fmt.Printf("%-40s %s\n", wt.Path, branch)
		}
		return nil
	}

	return cmd
}
