package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tendrilhq/tendril-core/cli"
)

// NewWatchCmd creates the `watch` command
func NewWatchCmd() *cobra.Command {
	cmd := cli.NewStandardCommand(
		"watch [path]",
		"Watch a checkout and print branch changes",
	)
	cmd.Long = `Watch the HEAD of a checkout and print an event each time the
checked-out branch changes. Runs until interrupted.`
	cmd.Args = cobra.MaximumNArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts := cli.GetOptions(cmd)
		handler := cli.NewErrorHandler(opts.Verbose)

		checkoutPath, err := repoArg(args)
		if err != nil {
			return handler.Handle(err)
		}

		tr, err := newTracker(cmd)
		if err != nil {
			return handler.Handle(err)
		}
		defer tr.Close()

		const chatID = "cli-watch"
		events, cancel := tr.Events(chatID)
		defer cancel()

		if err := tr.Track(chatID, checkoutPath, "cli"); err != nil {
			return handler.Handle(err)
		}
		defer tr.Untrack(chatID, "cli")

		if branch := tr.Branch(chatID); branch != nil {
			fmt.Printf("Watching %s (on %s)\n", checkoutPath, *branch)
		} else {
			fmt.Printf("Watching %s (detached HEAD)\n", checkoutPath)
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				from := ev.OldBranch
				if from == "" {
					from = "(detached)"
				}
				to := ev.NewBranch
				if to == "" {
					to = "(detached)"
				}
				fmt.Printf("branch changed: %s -> %s\n", from, to)
			case <-sigs:
				return nil
			case <-cmd.Context().Done():
				return nil
			}
		}
	}

	return cmd
}
