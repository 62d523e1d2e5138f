package commands

import (
	"context"
	"fmt"
	"os"

	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/lib/configutil"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dbPath     string

	cfg Config
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "observatorio.json5", "Configuration file, a .local variant is merged on top.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Sqlite file runs are recorded to, overrides the config.")
}

var rootCmd = &cobra.Command{
	Use:           "observatorio",
	Short:         "observatorio collects the education data published by the municipal data observatory.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			telemetry.InitSlog(true)
		}

		loaded, err := configutil.ReadOverDefaults(configPath, DefaultConfig())
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		if cmd.Flags().Changed("db") {
			loaded.Database = dbPath
		}
		cfg = loaded
		return nil
	},
}

// ExecuteContext runs the command tree, the error is printed before it is returned.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}
