package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"observatorio-backend/internal/browser"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/datasets/inep"
	"observatorio-backend/internal/db"
	"observatorio-backend/internal/qedu"
	"observatorio-backend/internal/runlog"
	"observatorio-backend/internal/sheet"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigRoundTrips(t *testing.T) {
	c := DefaultConfig()
	require.Empty(t, cmp.Diff(browser.DefaultOptions(), c.BrowserOptions()))
	require.Empty(t, cmp.Diff(qedu.DefaultConfig(), c.JobConfig()))

	for _, name := range qedu.JobNames() {
		require.NotEmpty(t, c.Qedu.Outputs[name], name)
	}
}

func TestConfigFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "observatorio.json5")
	err := os.WriteFile(path, []byte(`{
		// only the census years are narrowed
		qedu: { census_years: ["2024", "2023"] },
		browser: { click_settle_ms: 100 },
	}`), 0644)
	require.NoError(t, err)

	rootCmd.SetArgs([]string{"--config", path, "runs", "list", "--db", ""})
	err = rootCmd.ExecuteContext(context.Background())
	require.ErrorIs(t, err, errRecordingDisabled)

	require.Equal(t, []string{"2024", "2023"}, cfg.JobConfig().CensusYears)
	require.Equal(t, qedu.DefaultConfig().SaebYears, cfg.JobConfig().SaebYears)
	require.Equal(t, int64(100), cfg.BrowserOptions().ClickSettle.Milliseconds())
}

func TestQeduCommands(t *testing.T) {
	var names []string
	for _, c := range qeduCmd.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, qedu.JobNames(), names)
}

func TestStaticCommandsAreRecorded(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "runs.db")
	missingConfig := filepath.Join(dir, "missing.json5")
	enemFile := filepath.Join(dir, "out", "enem.xlsx")

	rootCmd.SetArgs([]string{"--config", missingConfig, "--db", dbFile, "static", "enem", "--out", enemFile})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	rootCmd.SetArgs([]string{"--config", missingConfig, "--db", dbFile, "static", "inep", "--dir", dir})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))

	tables, err := sheet.ReadXLSX(enemFile)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	require.Equal(t, "ENEM", tables[0].Name)
	require.Len(t, tables[0].Rows, 47)
	require.Equal(t, "Resumo", tables[1].Name)

	require.FileExists(t, filepath.Join(dir, inep.FileName))

	database, err := db.Open(dbFile)
	require.NoError(t, err)
	defer database.Close()

	runs, err := runlog.NewRecorder(database, telemetry.NewRecorder()).List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byJob := map[string]runlog.Summary{}
	for _, r := range runs {
		byJob[r.Job] = r
	}
	require.Equal(t, enemFile, byJob["enem"].Output)
	require.Equal(t, 47+tables[1].Len(), byJob["enem"].RowCount)
	require.Equal(t, filepath.Join(dir, inep.FileName), byJob["inep"].Output)
	require.Zero(t, byJob["inep"].RowCount)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	rootCmd.SetArgs([]string{"--config", missingConfig, "--db", dbFile, "runs", "show", byJob["enem"].ID})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), byJob["enem"].ID)
	require.Contains(t, out.String(), "ENEM")
	require.Contains(t, out.String(), "Resumo")

	rootCmd.SetArgs([]string{"--config", missingConfig, "--db", dbFile, "runs", "show", "missing"})
	require.ErrorIs(t, rootCmd.ExecuteContext(context.Background()), runlog.ErrRunNotFound)

	out.Reset()
	rootCmd.SetArgs([]string{"--config", missingConfig, "--db", dbFile, "runs", "prune", "--before", "2000-01-01"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "deleted 0 runs")

	out.Reset()
	tomorrow := time.Now().AddDate(0, 0, 1).Format(time.DateOnly)
	rootCmd.SetArgs([]string{"--config", missingConfig, "--db", dbFile, "runs", "prune", "--before", tomorrow})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "deleted 2 runs")

	runs, err = runlog.NewRecorder(database, telemetry.NewRecorder()).List(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, runs)
}

func TestParseBefore(t *testing.T) {
	now := time.Date(2025, 6, 30, 12, 0, 0, 0, time.Local)

	date, err := parseBefore("2025-01-31", now)
	require.NoError(t, err)
	require.True(t, date.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, time.Local)))

	age, err := parseBefore("720h", now)
	require.NoError(t, err)
	require.True(t, age.Equal(now.Add(-30*24*time.Hour)))

	for _, value := range []string{"", "yesterday", "-24h", "31/01/2025"} {
		_, err = parseBefore(value, now)
		require.Error(t, err, value)
	}
}

func TestFinishRunRecordsPartialOutput(t *testing.T) {
	dir := t.TempDir()
	previous := cfg
	t.Cleanup(func() { cfg = previous })
	cfg = DefaultConfig()
	cfg.Database = filepath.Join(dir, "runs.db")

	partial := sheet.NewTable("Aprendizado", "Ano", "Rede")
	partial.Append("2023", "Municipal")
	partial.Append("2021", "Municipal")

	aborted := errors.New("qedu: page did not render")
	tel := telemetry.NewRecorder()
	output := filepath.Join(dir, "aprendizado.xlsx")
	err := finishRun(context.Background(), tel, runlog.Run{
		Job:       "learning",
		StartedAt: time.Now(),
		Output:    output,
		Err:       aborted,
	}, []*sheet.Table{partial})
	require.ErrorIs(t, err, aborted)

	tables, err := sheet.ReadXLSX(output)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	require.Equal(t, 2, tables[0].Len())

	database, err := db.Open(cfg.Database)
	require.NoError(t, err)
	defer database.Close()
	runs, err := runlog.NewRecorder(database, telemetry.NewRecorder()).List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "learning", runs[0].Job)
	require.Equal(t, output, runs[0].Output)
	require.Equal(t, 2, runs[0].RowCount)
	require.Equal(t, aborted.Error(), runs[0].Error)
}
