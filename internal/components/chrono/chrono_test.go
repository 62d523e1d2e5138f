package chrono

import (
	"errors"
	"testing"
	"time"

	"observatorio-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func TestStandardImpl(t *testing.T) {
	clock, err := NewStandardImpl()
	require.NoError(t, err)
	require.Equal(t, "America/Sao_Paulo", clock.Location().String())
	require.Equal(t, clock.Location(), clock.Now().Location())
}

func TestFixedImpl(t *testing.T) {
	instant := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	clock := FixedImpl{Instant: instant}
	require.Equal(t, instant, clock.Now())
	require.Equal(t, time.UTC, clock.Location())
}

func TestCronLogger(t *testing.T) {
	recorder := telemetry.NewRecorder()
	logger := cronLogger{tel: recorder}

	logger.Info("schedule", "entry", 1, "next", "06:00")
	logger.Error(errors.New("boom"), "job panicked", "entry", 1)

	debug := recorder.Reports(telemetry.REPORT_DEBUG, "cron: schedule")
	require.Len(t, debug, 1)
	require.Equal(t, []any{"entry: 1", "next: 06:00"}, debug[0].Params)

	broken := recorder.Reports(telemetry.REPORT_BROKEN, "cron")
	require.Len(t, broken, 1)
	require.EqualError(t, broken[0].Params[0].(error), "job panicked: boom")
	require.Equal(t, "entry: 1", broken[0].Params[1])
}

func TestStandardCronRejectsBadSpec(t *testing.T) {
	cron := NewStandardCron(telemetry.NewRecorder(), time.UTC)
	defer cron.Stop()
	require.Error(t, cron.Cron("every day", func() {}))
	require.NoError(t, cron.Cron("0 6 * * *", func() {}))
}
