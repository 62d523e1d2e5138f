package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"observatorio-backend/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestFormatHeaders(t *testing.T) {
	require.Equal(t, "", formatHeaders(http.Header{}))
	require.Equal(t, "Accept: */*\nX-Id: 1\nX-Id: 2", formatHeaders(http.Header{
		"X-Id":   {"1", "2"},
		"Accept": {"*/*"},
	}))
}

func TestFileSafe(t *testing.T) {
	require.Equal(t, "127.0.0.1_8080", fileSafe("127.0.0.1:8080"))
	require.Equal(t, "servicodados.ibge.gov.br", fileSafe("servicodados.ibge.gov.br"))
}

func TestDumpExchanges(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	dir := filepath.Join(t.TempDir(), "dumps")
	client := resty.New()
	tel := telemetry.NewRecorder()
	require.NoError(t, DumpExchanges(client, dir, tel))

	_, err := client.R().Get(server.URL + "/api/v1/localidades")
	require.NoError(t, err)
	_, err = client.R().Get(server.URL + "/other")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.True(t, strings.HasPrefix(entries[0].Name(), "001-127.0.0.1_"))

	contents, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	text := string(contents)
	require.Contains(t, text, "---- REQUEST ----\n\nGET "+server.URL+"/api/v1/localidades")
	require.Contains(t, text, "---- RESPONSE ----\n\n200 OK")
	require.Contains(t, text, "Content-Type: application/json")
	require.True(t, strings.HasSuffix(text, `{"status":"ok"}`))
	require.Empty(t, tel.Reports(telemetry.REPORT_WARNING, report_dump_write))

	// the dump directory vanishing does not fail the request
	require.NoError(t, os.RemoveAll(dir))
	res, err := client.R().Get(server.URL + "/after")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())
	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, report_dump_write), 1)
}
