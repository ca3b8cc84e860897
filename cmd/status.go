package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendrilhq/tendril-core/cli"
	"github.com/tendrilhq/tendril-core/git"
)

// NewStatusCmd creates the `status` command
func NewStatusCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"status [path]",
		"Show the tracked status of a repository",
	)
	cmd.Long = `Display the status snapshot for a repository: current branch, file
changes with line counts, and the branch's position relative to the
default branch and its upstream.`
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

		snap, err := tr.Status(cmd.Context(), repoPath)
		if err != nil {
			return handler.Handle(err)
		}

		if opts.JSONOutput {
			return json.NewEncoder(os.Stdout).Encode(snap)
		}

		printStatus(snap)
		return nil
	}

	return cmd
}

func printStatus(snap *git.StatusSnapshot) {
	branch := snap.Branch
	if branch == "" {
		branch = "(detached)"
	}
	fmt.Printf("On branch %s (default: %s)\n", branch, snap.DefaultBranch)

	if snap.Branch != "" && snap.Branch != snap.DefaultBranch {
		fmt.Printf("Ahead of %s by %d, behind by %d\n",
			snap.DefaultBranch, snap.Ahead, snap.Behind)
	}
	if snap.HasUpstream {
		fmt.Printf("Upstream: %d to push, %d to pull\n", snap.PushCount, snap.PullCount)
	} else {
		fmt.Println("No upstream configured")
	}

	printFileSection("Staged", snap.Staged)
	printFileSection("Unstaged", snap.Unstaged)
	printFileSection("Untracked", snap.Untracked)

	if len(snap.Commits) > 0 {
		fmt.Printf("\nCommits not on %s:\n", snap.DefaultBranch)
		for _, c := range snap.Commits {
			fmt.Printf("  %.8s %s\n", c.Hash, c.Subject)
		}
	}
}

func printFileSection(title string, files []git.ChangedFile) {
	if len(files) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, f := range files {
		fmt.Printf("  %-10s %s (+%d -%d)\n", f.Kind, f.Path, f.Additions, f.Deletions)
	}
}
