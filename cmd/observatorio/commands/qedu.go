package commands

import (
	"fmt"
	"time"

	"observatorio-backend/internal/browser"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/qedu"
	"observatorio-backend/internal/runlog"

	"github.com/spf13/cobra"
)

const perfStatsInterval = 30 * time.Second

var qeduCmd = &cobra.Command{
	Use:   "qedu",
	Short: "Drives a browser through the QEdu municipality pages and writes what it reads to a spreadsheet.",
}

func init() {
	for _, name := range qedu.JobNames() {
		qeduCmd.AddCommand(newQeduJobCmd(name))
	}
	rootCmd.AddCommand(qeduCmd)
}

func newQeduJobCmd(name string) *cobra.Command {
	var (
		out      string
		headless bool
	)

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s [--out <path/to/output.xlsx>] [--headless]", name),
		Short: fmt.Sprintf("Runs the %s scraping job.", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, _ := qedu.Lookup(name)

			if !cmd.Flags().Changed("out") {
				out = cfg.Qedu.Outputs[name]
			}
			if out == "" {
				return fmt.Errorf("no output configured for %s, pass --out", name)
			}
			options := cfg.BrowserOptions()
			if cmd.Flags().Changed("headless") {
				options.Headless = headless
			}

			ctx := cmd.Context()
			tel := telemetry.NewScopedAPI(name, telemetry.SlogAPI{})
			telemetry.InstrumentPerfStats(ctx, tel, perfStatsInterval)

			run := runlog.Run{
				ID:        runlog.NewRunID(),
				Job:       name,
				StartedAt: time.Now(),
				Output:    out,
			}

			page, err := browser.NewChrome(ctx, tel, options)
			if err != nil {
				return fmt.Errorf("start browser: %w", err)
			}
			tables, jobErr := job(ctx, page, tel, cfg.JobConfig())
			err = page.Close()
			if err != nil {
				tel.ReportWarning("browser.close", err)
			}

			if jobErr != nil {
				tel.ReportBroken("aborted", jobErr, rowCount(tables))
				run.Err = jobErr
			}
			run.FinishedAt = time.Now()
			return finishRun(ctx, tel, run, tables)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "The spreadsheet to write, defaults to the configured output of the job.")
	cmd.Flags().BoolVar(&headless, "headless", false, "Run the browser without a window.")
	return cmd
}
