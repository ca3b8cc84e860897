package main

import (
	"os"

	"github.com/tendrilhq/tendril-core/cli"
	"github.com/tendrilhq/tendril-core/cmd"
	"github.com/tendrilhq/tendril-core/version"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"tendril",
		"Git tracking core for concurrent coding-agent checkouts",
	)
	cli.SetVersionTemplate(rootCmd, version.GetInfo())

	rootCmd.AddCommand(cmd.NewStatusCmd())
	rootCmd.AddCommand(cmd.NewWorktreesCmd())
	rootCmd.AddCommand(cmd.NewReposCmd())
	rootCmd.AddCommand(cmd.NewWatchCmd())
	rootCmd.AddCommand(cli.NewVersionCommand("tendril"))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
