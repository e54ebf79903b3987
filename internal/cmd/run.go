package cmd

import (
	"fmt"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/duration"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/runtime/runner"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// Run returns the command that executes a watch once.
func Run() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "run [flags] <watch file>",
			Short: "Execute a watch once",
			Long: `Execute one cycle of a watch right now: run its input, check its
condition and run its actions, honouring throttling and acknowledgement
recorded in the status of the watch document.

Example:
  watcher run disk_usage.yaml --status
`,
			Args: cobra.ExactArgs(1),
		}, []commandLineFlag{timeoutFlag, statusFlag, formatFlag, noStatusFlag},
		runRun,
	)
}

func runRun(ctx *Context, args []string) error {
	var opts []runner.Option
	if s, _ := ctx.Command.Flags().GetString("timeout"); s != "" {
		d, err := duration.Parse(s)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		opts = append(opts, runner.WithTimeout(d))
	}
	noStatus, _ := ctx.Command.Flags().GetBool("no-status")
	w, err := ctx.LoadWatch(args[0], !noStatus)
	if err != nil {
		return err
	}

	record, status, runErr := runner.Run(ctx.Context, w, core.SystemClock{}, opts...)
	renderRecord(ctx, record)

	if printStatus, _ := ctx.Command.Flags().GetBool("status"); printStatus {
		format, err := outputFormat(ctx)
		if err != nil {
			return err
		}
		data, err := document.Encode(document.Object(document.KV("status", status.Spec())), format)
		if err != nil {
			return fmt.Errorf("failed to encode status: %w", err)
		}
		_, _ = ctx.Out.Write(append(data, '\n'))
	}
	return runErr
}

var actionHeader = table.Row{
	"#",
	"Action",
	"Type",
	"Outcome",
	"Reason",
}

func renderRecord(ctx *Context, record *runner.Record) {
	summary := table.NewWriter()
	summary.SetOutputMirror(ctx.Out)
	summary.AppendHeader(table.Row{"Watch", "Execution", "Time", "State", "Condition Met", "Error"})
	met := ""
	if record.Condition != nil {
		met = fmt.Sprint(record.Condition.Met)
	}
	summary.AppendRow(table.Row{
		record.WatchID,
		record.ExecutionID,
		record.ExecutionTime.Format(time.RFC3339),
		record.State.String(),
		met,
		record.Error,
	})
	summary.Render()

	if len(record.Actions) == 0 {
		return
	}
	actions := table.NewWriter()
	actions.SetOutputMirror(ctx.Out)
	actions.AppendHeader(actionHeader)
	for i, a := range record.Actions {
		actions.AppendRow(table.Row{i + 1, a.ID, a.Type, a.Outcome.String(), a.Reason})
	}
	actions.Render()
}
