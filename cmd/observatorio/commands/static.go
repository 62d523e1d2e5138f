package commands

import (
	"fmt"
	"time"

	"observatorio-backend/internal/components/chrono"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/datasets/dashboard"
	"observatorio-backend/internal/datasets/enem"
	"observatorio-backend/internal/datasets/inep"
	"observatorio-backend/internal/runlog"
	"observatorio-backend/internal/sheet"

	"github.com/spf13/cobra"
)

var staticCmd = &cobra.Command{
	Use:   "static",
	Short: "Writes the transcribed education tables.",
}

var (
	enemOut      string
	inepDir      string
	dashboardOut string
)

func init() {
	staticEnemCmd.Flags().StringVar(&enemOut, "out", "", "The spreadsheet to write.")
	staticInepCmd.Flags().StringVar(&inepDir, "dir", "", "The directory educacao_inep.json is written to.")
	staticDashboardCmd.Flags().StringVar(&dashboardOut, "out", "", "The spreadsheet to write.")

	staticCmd.AddCommand(staticEnemCmd, staticInepCmd, staticDashboardCmd)
	rootCmd.AddCommand(staticCmd)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

var staticEnemCmd = &cobra.Command{
	Use:   "enem [--out <path/to/output.xlsx>]",
	Short: "Writes the ENEM 2017-2023 averages and a per-area summary.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tel := telemetry.NewScopedAPI("enem", telemetry.SlogAPI{})
		run := runlog.Run{
			ID:        runlog.NewRunID(),
			Job:       "enem",
			StartedAt: time.Now(),
			Output:    orDefault(enemOut, cfg.Static.EnemOutput),
		}

		tables := []*sheet.Table{enem.Table()}
		summary, err := enem.Summary()
		if err != nil {
			tel.ReportWarning("summary", err)
		} else {
			tables = append(tables, summary)
		}
		return finishRun(cmd.Context(), tel, run, tables)
	},
}

var staticDashboardCmd = &cobra.Command{
	Use:   "dashboard [--out <path/to/output.xlsx>]",
	Short: "Writes the series shown on the education dashboard.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tel := telemetry.NewScopedAPI("dashboard", telemetry.SlogAPI{})
		run := runlog.Run{
			ID:        runlog.NewRunID(),
			Job:       "dashboard",
			StartedAt: time.Now(),
			Output:    orDefault(dashboardOut, cfg.Static.DashboardOutput),
		}
		return finishRun(cmd.Context(), tel, run, dashboard.Tables())
	},
}

var staticInepCmd = &cobra.Command{
	Use:   "inep [--dir <path/to/dir>]",
	Short: "Writes the INEP summary document.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tel := telemetry.NewScopedAPI("inep", telemetry.SlogAPI{})
		clock, err := chrono.NewStandardImpl()
		if err != nil {
			return err
		}

		run := runlog.Run{
			ID:        runlog.NewRunID(),
			Job:       "inep",
			StartedAt: clock.Now(),
		}
		path, err := inep.Write(orDefault(inepDir, cfg.Static.InepDir), clock.Now())
		if err != nil {
			return fmt.Errorf("write inep document: %w", err)
		}
		run.Output = path
		run.FinishedAt = clock.Now()
		tel.ReportInfo("wrote", path)

		recordRun(cmd.Context(), tel, run, nil)
		return nil
	},
}
