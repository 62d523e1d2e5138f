package runlog

import (
	"context"
	"errors"
	"testing"
	"time"

	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/db"
	"observatorio-backend/internal/sheet"

	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *Recorder {
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewRecorder(database, telemetry.NewRecorder())
}

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	recorder := newTestRecorder(t)

	start := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)

	schools := sheet.NewTable("Qtd_Escolas", "Ano", "Total Escolas")
	schools.Append("2024", "87")
	schools.Append("2023", "N/D")

	firstID, err := recorder.Record(ctx, Run{
		Job:        "census",
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Output:     "censo.xlsx",
	}, []*sheet.Table{schools, sheet.NewTable("Matriculas_Detalhadas", "Ano")})
	require.NoError(t, err)
	require.NotEmpty(t, firstID)

	_, err = recorder.Record(ctx, Run{
		ID:         "second",
		Job:        "proficiency",
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour + 30*time.Second),
		Output:     "prof.xlsx",
		Err:        errors.New("devtools: target crashed"),
	}, nil)
	require.NoError(t, err)

	runs, err := recorder.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	require.Equal(t, "second", runs[0].ID)
	require.Equal(t, "devtools: target crashed", runs[0].Error)
	require.Equal(t, 0, runs[0].RowCount)
	require.Equal(t, 30*time.Second, runs[0].Duration())

	require.Equal(t, firstID, runs[1].ID)
	require.Equal(t, "census", runs[1].Job)
	require.Equal(t, 2, runs[1].RowCount)
	require.Empty(t, runs[1].Error)
	require.True(t, runs[1].StartedAt.Equal(start))

	got, err := recorder.Get(ctx, "second")
	require.NoError(t, err)
	require.Equal(t, runs[0], got)

	_, err = recorder.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrRunNotFound)

	limited, err := recorder.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	rows, err := recorder.Rows(ctx, firstID)
	require.NoError(t, err)
	require.Equal(t, map[string][]map[string]any{
		"Qtd_Escolas": {
			{"Ano": "2024", "Total Escolas": "87"},
			{"Ano": "2023", "Total Escolas": "N/D"},
		},
	}, rows)
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	recorder := newTestRecorder(t)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	table := sheet.NewTable("ENEM", "Ano")
	table.Append(2023)
	id, err := recorder.Record(ctx, Run{Job: "enem", StartedAt: start, FinishedAt: start}, []*sheet.Table{table})
	require.NoError(t, err)
	_, err = recorder.Record(ctx, Run{Job: "enem", StartedAt: start.AddDate(0, 1, 0), FinishedAt: start.AddDate(0, 1, 0)}, nil)
	require.NoError(t, err)

	removed, err := recorder.Prune(ctx, start.AddDate(0, 0, 15))
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	rows, err := recorder.Rows(ctx, id)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestNewRunIDIsOrdered(t *testing.T) {
	a := NewRunID()
	time.Sleep(2 * time.Millisecond)
	b := NewRunID()
	require.Less(t, a, b)
}
