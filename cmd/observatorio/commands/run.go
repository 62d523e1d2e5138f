package commands

import (
	"context"
	"errors"
	"os"
	"time"

	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/db"
	"observatorio-backend/internal/runlog"
	"observatorio-backend/internal/sheet"

	"github.com/jedib0t/go-pretty/v6/table"
)

const report_run_record = "run.record"

var errRecordingDisabled = errors.New("no database configured, pass --db or set \"database\"")

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// openRecorder returns a nil recorder when recording is disabled.
func openRecorder(tel telemetry.API) (*runlog.Recorder, func(), error) {
	if cfg.Database == "" {
		return nil, func() {}, nil
	}
	database, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return runlog.NewRecorder(database, tel), func() { database.Close() }, nil
}

// finishRun writes `tables` to run.Output and records the run, the rows collected before an
// abort are written the same way.
func finishRun(ctx context.Context, tel telemetry.API, run runlog.Run, tables []*sheet.Table) error {
	writeErr := sheet.WriteXLSX(run.Output, tables...)
	if writeErr != nil {
		tel.ReportBroken("write", writeErr, run.Output)
		run.Output = ""
	} else {
		tel.ReportInfo("wrote", run.Output, rowCount(tables))
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	recordRun(ctx, tel, run, tables)
	return errors.Join(run.Err, writeErr)
}

func recordRun(ctx context.Context, tel telemetry.API, run runlog.Run, tables []*sheet.Table) {
	recorder, closeDB, err := openRecorder(tel)
	if err != nil {
		tel.ReportWarning(report_run_record, err, cfg.Database)
		return
	}
	defer closeDB()
	if recorder == nil {
		return
	}

	// an interrupted run is still recorded
	id, err := recorder.Record(context.WithoutCancel(ctx), run, tables)
	if err != nil {
		tel.ReportWarning(report_run_record, err)
		return
	}
	tel.ReportDebug("recorded run", id)
}

func rowCount(tables []*sheet.Table) int {
	count := 0
	for _, t := range tables {
		if t != nil {
			count += t.Len()
		}
	}
	return count
}
