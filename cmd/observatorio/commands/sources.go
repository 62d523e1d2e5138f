package commands

import (
	"fmt"
	"time"

	"observatorio-backend/internal/components/chrono"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/sources"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Checks the public data sources and stamps their status into the local metadata file.",
}

var (
	checkDump string
	syncFile  string
	watchFile string
	watchCron string
)

func init() {
	sourcesCheckCmd.Flags().StringVar(&checkDump, "dump", "", "A directory every response is dumped to.")
	sourcesSyncCmd.Flags().StringVar(&syncFile, "file", "", "The metadata json to update.")
	sourcesWatchCmd.Flags().StringVar(&watchFile, "file", "", "The metadata json to update.")
	sourcesWatchCmd.Flags().StringVar(&watchCron, "cron", "", "The cron schedule syncs run on.")

	sourcesCmd.AddCommand(sourcesCheckCmd, sourcesSyncCmd, sourcesWatchCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func newChecker(dumpDir string) (*sources.Checker, chrono.StandardImpl, error) {
	clock, err := chrono.NewStandardImpl()
	if err != nil {
		return nil, clock, err
	}
	options := cfg.SourcesOptions()
	options.DumpDir = dumpDir
	checker := sources.NewChecker(telemetry.SlogAPI{}, clock, sources.Defaults, options)
	return checker, clock, nil
}

func renderStatuses(statuses []sources.Status) {
	t := newTable()
	t.AppendHeader(table.Row{"Fonte", "Tipo", "Estado", "Detalhe", "Latência"})
	for _, s := range statuses {
		t.AppendRow(table.Row{s.Source.Name, s.Source.Kind, s.State, s.Detail, s.Latency.Round(time.Millisecond)})
	}
	t.Render()
}

var sourcesCheckCmd = &cobra.Command{
	Use:   "check [--dump <path/to/dir>]",
	Short: "Prints whether each data source is reachable.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		checker, _, err := newChecker(checkDump)
		if err != nil {
			return err
		}
		statuses := checker.Check(cmd.Context())
		renderStatuses(statuses)
		if !sources.AnyOnline(statuses) {
			return fmt.Errorf("every source is offline")
		}
		return nil
	},
}

var sourcesSyncCmd = &cobra.Command{
	Use:   "sync [--file <path/to/dados_educacao.json>]",
	Short: "Checks the sources once and updates the metadata file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		checker, _, err := newChecker("")
		if err != nil {
			return err
		}
		path := orDefault(syncFile, cfg.Sources.MetadataFile)
		result, err := checker.Sync(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("sync %s: %w", path, err)
		}
		renderStatuses(result.Statuses)
		fmt.Printf("%s (%s)\n", result.Origin, result.SyncedAt)
		return nil
	},
}

var sourcesWatchCmd = &cobra.Command{
	Use:   "watch [--file <path/to/dados_educacao.json>] [--cron <spec>]",
	Short: "Updates the metadata file on a schedule until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		checker, clock, err := newChecker("")
		if err != nil {
			return err
		}
		cron := chrono.NewStandardCron(telemetry.SlogAPI{}, clock.Location())
		return checker.Watch(
			cmd.Context(),
			cron,
			orDefault(watchCron, cfg.Sources.Cron),
			orDefault(watchFile, cfg.Sources.MetadataFile),
		)
	},
}
