package main

import (
	"os"

	"github.com/dagucloud/watcher/internal/cmd"
	"github.com/dagucloud/watcher/internal/cmn/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   config.AppSlug,
	Short: "Watcher checks data on a schedule and alerts when a condition is met",
	Long: `Watcher runs declarative watches.

A watch has a trigger that decides when it runs, an input that gathers data,
a condition that inspects it, an optional transform and a set of actions
such as email, webhook, slack, index or logging. Actions are throttled and
can be acknowledged.
`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmd.Validate())
	rootCmd.AddCommand(cmd.Render())
	rootCmd.AddCommand(cmd.Schedule())
	rootCmd.AddCommand(cmd.Run())
	rootCmd.AddCommand(cmd.Version())

	config.Version = version
}

var version = "0.0.0"
