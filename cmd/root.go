// Package cmd implements the tendril debugging CLI subcommands. The same
// tracker the host application embeds backs every command, so the CLI
// doubles as an integration probe.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tendrilhq/tendril-core/cli"
	"github.com/tendrilhq/tendril-core/store"
	"github.com/tendrilhq/tendril-core/tracker"
)

// newTracker builds a Tracker from the command's config flags.
func newTracker(cmd *cobra.Command) (*tracker.Tracker, error) {
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}

	var recordStore *store.RecordStore
	recordPath := cfg.Watcher.RecordFile
	if recordPath == "" {
		recordPath, err = store.DefaultPath()
		if err != nil {
			recordPath = ""
		}
	}
	if recordPath != "" {
		recordStore = store.NewRecordStore(recordPath)
	}

	return tracker.New(tracker.Options{Config: cfg, Store: recordStore}), nil
}

// repoArg resolves the optional repository path argument, defaulting to
// the current directory.
func repoArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return os.Getwd()
}
