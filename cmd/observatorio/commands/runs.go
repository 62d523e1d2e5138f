package commands

import (
	"fmt"
	"slices"
	"time"

	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/runlog"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	runsLimit   int
	pruneBefore string
)

func init() {
	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "How many runs to list.")
	runsPruneCmd.Flags().StringVar(&pruneBefore, "before", "", "Date (2006-01-02) or age (720h) runs must have started before to be deleted.")
	runsPruneCmd.MarkFlagRequired("before")
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsPruneCmd)
	rootCmd.AddCommand(runsCmd)
}

// withRecorder opens the run log for the duration of `fn`.
func withRecorder(fn func(recorder *runlog.Recorder) error) error {
	recorder, closeDB, err := openRecorder(telemetry.SlogAPI{})
	if err != nil {
		return err
	}
	defer closeDB()
	if recorder == nil {
		return errRecordingDisabled
	}
	return fn(recorder)
}

// parseBefore accepts either a local date or an age relative to `now`.
func parseBefore(value string, now time.Time) (time.Time, error) {
	date, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err == nil {
		return date, nil
	}
	age, err := time.ParseDuration(value)
	if err != nil || age < 0 {
		return time.Time{}, fmt.Errorf("invalid --before %q, expected a date like 2025-01-31 or an age like 720h", value)
	}
	return now.Add(-age), nil
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspects the recorded job runs.",
}

var runsListCmd = &cobra.Command{
	Use:   "list [--limit <n>]",
	Short: "Lists the most recent runs.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecorder(func(recorder *runlog.Recorder) error {
			runs, err := recorder.List(cmd.Context(), runsLimit)
			if err != nil {
				return err
			}

			t := newTable()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"ID", "Job", "Started", "Duration", "Rows", "Output", "Error"})
			for _, r := range runs {
				t.AppendRow(summaryRow(r))
			}
			t.Render()
			return nil
		})
	},
}

func summaryRow(r runlog.Summary) table.Row {
	return table.Row{
		r.ID,
		r.Job,
		r.StartedAt.Format(time.DateTime),
		r.Duration().Round(time.Second),
		r.RowCount,
		r.Output,
		r.Error,
	}
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Prints a run and the rows it recorded, one table per sheet.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRecorder(func(recorder *runlog.Recorder) error {
			return showRun(cmd, recorder, args[0])
		})
	},
}

func showRun(cmd *cobra.Command, recorder *runlog.Recorder, id string) error {
	ctx := cmd.Context()
	run, err := recorder.Get(ctx, id)
	if err != nil {
		return err
	}
	rows, err := recorder.Rows(ctx, id)
	if err != nil {
		return err
	}

	t := newTable()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"ID", "Job", "Started", "Duration", "Rows", "Output", "Error"})
	t.AppendRow(summaryRow(run))
	t.Render()

	sheets := make([]string, 0, len(rows))
	for name := range rows {
		sheets = append(sheets, name)
	}
	slices.Sort(sheets)

	for _, name := range sheets {
		columns := rowColumns(rows[name])
		header := make(table.Row, len(columns))
		for i, c := range columns {
			header[i] = c
		}

		t := newTable()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetTitle(name)
		t.AppendHeader(header)
		for _, row := range rows[name] {
			values := make(table.Row, len(columns))
			for i, c := range columns {
				values[i] = row[c]
			}
			t.AppendRow(values)
		}
		t.Render()
	}
	return nil
}

// rowColumns returns every key used by `rows`, sorted.
func rowColumns(rows []map[string]any) []string {
	var columns []string
	for _, row := range rows {
		for key := range row {
			if !slices.Contains(columns, key) {
				columns = append(columns, key)
			}
		}
	}
	slices.Sort(columns)
	return columns
}

var runsPruneCmd = &cobra.Command{
	Use:   "prune --before <date|age>",
	Short: "Deletes the runs started before a date, with their rows.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		before, err := parseBefore(pruneBefore, time.Now())
		if err != nil {
			return err
		}
		return withRecorder(func(recorder *runlog.Recorder) error {
			return pruneRuns(cmd, recorder, before)
		})
	},
}

func pruneRuns(cmd *cobra.Command, recorder *runlog.Recorder, before time.Time) error {
	removed, err := recorder.Prune(cmd.Context(), before)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %d runs started before %s\n", removed, before.Format(time.DateTime))
	return nil
}
