package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// Schedule returns the command that lists the upcoming fire times of a watch.
func Schedule() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "schedule [flags] <watch file>",
			Short: "List the next fire times of a watch",
			Long: `Parse a watch file and list when its trigger fires next, in the
configured timezone.

Example:
  watcher schedule disk_usage.yaml -n 10 --from 2026-01-01T00:00:00Z
`,
			Args: cobra.ExactArgs(1),
		}, []commandLineFlag{countFlag, fromFlag},
		runSchedule,
	)
}

func runSchedule(ctx *Context, args []string) error {
	countStr, _ := ctx.Command.Flags().GetString("count")
	count, err := strconv.Atoi(countStr)
	if err != nil || count < 1 {
		return fmt.Errorf("invalid count %q", countStr)
	}
	from := time.Now()
	if s, _ := ctx.Command.Flags().GetString("from"); s != "" {
		if from, err = time.Parse(time.RFC3339, s); err != nil {
			return fmt.Errorf("invalid from time: %w", err)
		}
	}

	w, err := ctx.LoadWatch(args[0], false)
	if err != nil {
		return err
	}

	loc := ctx.Config.Core.Location
	if loc == nil {
		loc = time.Local
	}
	t := table.NewWriter()
	t.SetOutputMirror(ctx.Out)
	t.AppendHeader(table.Row{"#", "Fire Time", "In"})
	next := from
	for i := range count {
		next = w.Trigger.Next(next)
		if next.IsZero() {
			break
		}
		t.AppendRow(table.Row{i + 1, next.In(loc).Format(time.RFC3339), next.Sub(from).Round(time.Second).String()})
	}
	t.Render()
	return nil
}
