package cmd

import (
	"fmt"

	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/core/spec"
	"github.com/spf13/cobra"
)

// Render returns the command that prints the canonical form of a watch.
func Render() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "render [flags] <watch file>",
			Short: "Print a watch definition in canonical form",
			Long: `Parse a watch file and print it back with every default filled in,
scripts in object form and durations normalized.

Example:
  watcher render disk_usage.yaml --format json
`,
			Args: cobra.ExactArgs(1),
		}, []commandLineFlag{formatFlag, noStatusFlag},
		runRender,
	)
}

func runRender(ctx *Context, args []string) error {
	format, err := outputFormat(ctx)
	if err != nil {
		return err
	}
	noStatus, _ := ctx.Command.Flags().GetBool("no-status")
	w, err := ctx.LoadWatch(args[0], !noStatus)
	if err != nil {
		return err
	}
	data, err := spec.Encode(w, format)
	if err != nil {
		return fmt.Errorf("failed to encode watch: %w", err)
	}
	_, err = ctx.Out.Write(append(data, '\n'))
	return err
}

func outputFormat(ctx *Context) (document.Format, error) {
	f, _ := ctx.Command.Flags().GetString("format")
	switch format := document.Format(f); format {
	case document.FormatYAML, document.FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format %q, want yaml or json", f)
	}
}
