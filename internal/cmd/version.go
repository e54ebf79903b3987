package cmd

import (
	"fmt"

	"github.com/dagucloud/watcher/internal/cmn/config"
	"github.com/spf13/cobra"
)

// Version returns the command that prints the binary version.
func Version() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the binary version",
		Long:  `Print the current version of the watcher executable.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), config.Version)
		},
	}
}
