// Package runlog keeps a history of job runs and the rows each one wrote.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"observatorio-backend/internal/components/assert"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/db"
	"observatorio-backend/internal/sheet"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	report_recorder_record = "record"
	report_recorder_list   = "list"
)

var ErrRunNotFound = errors.New("run not found")

type Run struct {
	ID         string
	Job        string
	StartedAt  time.Time
	FinishedAt time.Time
	Output     string
	// Err is the error the job stopped with, the rows it collected are still recorded.
	Err error
}

type Summary struct {
	ID         string
	Job        string
	StartedAt  time.Time
	FinishedAt time.Time
	Output     string
	RowCount   int
	Error      string
}

func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// NewRunID returns a time ordered id.
func NewRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

type Recorder struct {
	db     *sqlx.DB
	makeTx db.MakeTx
	tel    telemetry.API
}

func NewRecorder(database *sqlx.DB, tel telemetry.API) *Recorder {
	assert.NotNil(database)
	assert.NotNil(tel)
	return &Recorder{
		db:     database,
		makeTx: db.NewMakeTx(database),
		tel:    telemetry.NewScopedAPI("runlog", tel),
	}
}

// Record stores the run and every row of `tables` in one transaction, it returns the
// run id.
func (r *Recorder) Record(ctx context.Context, run Run, tables []*sheet.Table) (string, error) {
	assert.NotEmptyStr(run.Job)
	if run.ID == "" {
		run.ID = NewRunID()
	}

	rowCount := 0
	for _, t := range tables {
		if t != nil {
			rowCount += t.Len()
		}
	}

	var runErr sql.NullString
	if run.Err != nil {
		runErr = sql.NullString{String: run.Err.Error(), Valid: true}
	}

	tx, discard, commit, err := r.makeTx()
	if err != nil {
		return "", err
	}
	defer discard()

	err = tx.InsertJobRun(ctx, db.JobRun{
		ID:         run.ID,
		Job:        run.Job,
		StartedAt:  run.StartedAt.UnixMilli(),
		FinishedAt: run.FinishedAt.UnixMilli(),
		Output:     run.Output,
		RowCount:   int64(rowCount),
		Error:      runErr,
	})
	if err != nil {
		r.tel.ReportBroken(report_recorder_record, err, run.ID)
		return "", err
	}

	for _, t := range tables {
		if t == nil {
			continue
		}
		for i, row := range t.Rows {
			data, err := encodeRow(t.Columns, row)
			if err != nil {
				return "", fmt.Errorf("encode %s row %d: %w", t.Name, i, err)
			}
			err = tx.InsertJobRow(ctx, db.JobRow{
				RunID: run.ID,
				Sheet: t.Name,
				Idx:   int64(i),
				Data:  data,
			})
			if err != nil {
				r.tel.ReportBroken(report_recorder_record, err, run.ID, t.Name)
				return "", err
			}
		}
	}

	err = commit()
	if err != nil {
		return "", err
	}
	r.tel.ReportDebug("recorded run", run.ID, run.Job, rowCount)
	return run.ID, nil
}

// encodeRow writes a row as a json object keyed by column.
func encodeRow(columns []string, row []any) (string, error) {
	obj := make(map[string]any, len(columns))
	for i, c := range columns {
		obj[c] = sheet.Normalize(row[i])
	}
	data, err := json.Marshal(obj)
	return string(data), err
}

// List returns the `limit` most recent runs.
func (r *Recorder) List(ctx context.Context, limit int) ([]Summary, error) {
	runs, err := db.New(r.db).ListJobRuns(ctx, limit)
	if err != nil {
		r.tel.ReportBroken(report_recorder_list, err)
		return nil, err
	}

	out := make([]Summary, len(runs))
	for i, run := range runs {
		out[i] = summarize(run)
	}
	return out, nil
}

func summarize(run db.JobRun) Summary {
	return Summary{
		ID:         run.ID,
		Job:        run.Job,
		StartedAt:  time.UnixMilli(run.StartedAt),
		FinishedAt: time.UnixMilli(run.FinishedAt),
		Output:     run.Output,
		RowCount:   int(run.RowCount),
		Error:      run.Error.String,
	}
}

// Get returns one run, ErrRunNotFound when there is none with that id.
func (r *Recorder) Get(ctx context.Context, runID string) (Summary, error) {
	run, err := db.New(r.db).GetJobRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return Summary{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Summary{}, err
	}
	return summarize(run), nil
}

// Rows returns the recorded rows of a run, grouped by sheet, each decoded to a column map.
func (r *Recorder) Rows(ctx context.Context, runID string) (map[string][]map[string]any, error) {
	rows, err := db.New(r.db).GetJobRows(ctx, runID)
	if err != nil {
		return nil, err
	}
	out := map[string][]map[string]any{}
	for _, row := range rows {
		var decoded map[string]any
		err = json.Unmarshal([]byte(row.Data), &decoded)
		if err != nil {
			return nil, fmt.Errorf("decode %s row %d: %w", row.Sheet, row.Idx, err)
		}
		out[row.Sheet] = append(out[row.Sheet], decoded)
	}
	return out, nil
}

// Prune deletes the runs started before `before` together with their rows.
func (r *Recorder) Prune(ctx context.Context, before time.Time) (int64, error) {
	return db.New(r.db).DeleteJobRunsBefore(ctx, before.UnixMilli())
}
