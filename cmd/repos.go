package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendrilhq/tendril-core/cli"
)

// NewReposCmd creates the `repos` command
func NewReposCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"repos [path]",
		"Detect git repositories under a project root",
	)
	cmd.Long = `Scan a project root for git repositories: the root itself plus
first-level subdirectories. Dependency directories and hidden
directories are skipped.`
	cmd.Args = cobra.MaximumNArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts := cli.GetOptions(cmd)
		handler := cli.NewErrorHandler(opts.Verbose)

		root, err := repoArg(args)
		if err != nil {
			return handler.Handle(err)
		}

		tr, err := newTracker(cmd)
		if err != nil {
			return handler.Handle(err)
		}
		defer tr.Close()

		layout, err := tr.DetectRepos(cmd.Context(), root)
		if err != nil {
			return handler.Handle(err)
		}

		if opts.JSONOutput {
			return json.NewEncoder(os.Stdout).Encode(layout)
		}

		if layout.RootIsRepo {
			fmt.Println(". (root)")
		}
		for _, name := range layout.SubRepos {
			fmt.Println(name)
		}
		if !layout.RootIsRepo && len(layout.SubRepos) == 0 {
			fmt.Println("No git repositories found.")
		}
		return nil
	}

	return cmd
}
