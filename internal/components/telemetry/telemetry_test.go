package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := NewRecorder()
	scoped := NewScopedAPI("census", NewScopedAPI("qedu", recorder))

	scoped.ReportWarning("select-year", "2013")
	scoped.ReportCount("rows", 12)

	warnings := recorder.Reports(REPORT_WARNING, "select-year")
	require.Len(t, warnings, 1)
	require.Equal(t, "qedu: census: select-year", warnings[0].ID)
	require.Equal(t, []any{"2013"}, warnings[0].Params)

	counts := recorder.Reports(REPORT_COUNT, "rows")
	require.Len(t, counts, 1)
	require.Equal(t, int64(12), counts[0].Count)

	require.Empty(t, recorder.Reports(REPORT_BROKEN, ""))
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	recorder := NewRecorder()
	client := resty.New()
	InstrumentResty(client, recorder, "test")

	res, err := client.R().Get(server.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, res.StatusCode())
	require.Len(t, recorder.Reports(REPORT_DEBUG, report_resty_request), 1)
	require.Len(t, recorder.Reports(REPORT_DEBUG, report_resty_response), 1)

	server.Close()
	_, err = client.R().Get(server.URL)
	require.Error(t, err)
	require.Len(t, recorder.Reports(REPORT_WARNING, report_resty_response), 1)
}
