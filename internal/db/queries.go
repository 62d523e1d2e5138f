package db

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

type JobRun struct {
	ID         string         `db:"id"`
	Job        string         `db:"job"`
	StartedAt  int64          `db:"started_at"`
	FinishedAt int64          `db:"finished_at"`
	Output     string         `db:"output"`
	RowCount   int64          `db:"row_count"`
	Error      sql.NullString `db:"error"`
}

type JobRow struct {
	RunID string `db:"run_id"`
	Sheet string `db:"sheet"`
	Idx   int64  `db:"idx"`
	Data  string `db:"data"`
}

// Queries runs the statements of the run log against a database or a transaction.
type Queries struct {
	db sqlx.ExtContext
}

func New(db sqlx.ExtContext) *Queries {
	return &Queries{db: db}
}

const insertJobRun = `insert into job_run (
    id, job, started_at, finished_at, output, row_count, error
) values (
    :id, :job, :started_at, :finished_at, :output, :row_count, :error
)`

func (q *Queries) InsertJobRun(ctx context.Context, run JobRun) error {
	_, err := sqlx.NamedExecContext(ctx, q.db, insertJobRun, run)
	return err
}

const insertJobRow = `insert into job_row (run_id, sheet, idx, data) values (:run_id, :sheet, :idx, :data)`

func (q *Queries) InsertJobRow(ctx context.Context, row JobRow) error {
	_, err := sqlx.NamedExecContext(ctx, q.db, insertJobRow, row)
	return err
}

const listJobRuns = `select id, job, started_at, finished_at, output, row_count, error
from job_run
order by started_at desc, id desc
limit ?`

func (q *Queries) ListJobRuns(ctx context.Context, limit int) ([]JobRun, error) {
	var runs []JobRun
	err := sqlx.SelectContext(ctx, q.db, &runs, listJobRuns, limit)
	return runs, err
}

const getJobRun = `select id, job, started_at, finished_at, output, row_count, error
from job_run
where id = ?`

// GetJobRun returns sql.ErrNoRows when there is no such run.
func (q *Queries) GetJobRun(ctx context.Context, id string) (JobRun, error) {
	var run JobRun
	err := sqlx.GetContext(ctx, q.db, &run, getJobRun, id)
	return run, err
}

const getJobRows = `select run_id, sheet, idx, data
from job_row
where run_id = ?
order by sheet, idx`

func (q *Queries) GetJobRows(ctx context.Context, runID string) ([]JobRow, error) {
	var rows []JobRow
	err := sqlx.SelectContext(ctx, q.db, &rows, getJobRows, runID)
	return rows, err
}

const deleteJobRunsBefore = `delete from job_run where started_at < ?`

func (q *Queries) DeleteJobRunsBefore(ctx context.Context, startedAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteJobRunsBefore, startedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
