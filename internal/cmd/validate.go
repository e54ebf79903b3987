package cmd

import (
	"errors"
	"fmt"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/spf13/cobra"
)

// ErrInvalidWatches is returned when at least one watch file does not parse.
var ErrInvalidWatches = errors.New("invalid watch definitions")

// Validate returns the command that checks watch files.
func Validate() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "validate [flags] <watch file>...",
			Short: "Check watch definitions without running them",
			Long: `Parse each watch file and report every problem found in it.

A bare name is looked up in the watches directory.

Example:
  watcher validate disk_usage.yaml
`,
			Args: cobra.MinimumNArgs(1),
		}, []commandLineFlag{noStatusFlag},
		runValidate,
	)
}

func runValidate(ctx *Context, args []string) error {
	noStatus, _ := ctx.Command.Flags().GetBool("no-status")
	failed := 0
	for _, path := range args {
		_, err := ctx.LoadWatch(path, !noStatus)
		if err == nil {
			_, _ = fmt.Fprintf(ctx.Out, "%s: OK\n", path)
			continue
		}
		failed++
		_, _ = fmt.Fprintf(ctx.Out, "%s: FAILED\n", path)
		var list core.ErrorList
		if errors.As(err, &list) {
			for _, e := range list {
				_, _ = fmt.Fprintf(ctx.Out, "  - %s\n", e)
			}
			continue
		}
		_, _ = fmt.Fprintf(ctx.Out, "  - %s\n", err)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrInvalidWatches, failed, len(args))
	}
	return nil
}
