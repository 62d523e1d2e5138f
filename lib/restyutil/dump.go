package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"observatorio-backend/internal/components/assert"
	"observatorio-backend/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
)

const report_dump_write = "dump-write"

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(&out, "%s: %s\n", k, v)
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func formatRequestBody(req *http.Request) string {
	if req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}
	return string(readBody)
}

// 1: request method
// 2: request url
// 3: request headers
// 4: request body
// 5: response status
// 6: response url
// 7: response headers
// 8: response body
const exchangeTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s %s

%s

%s`

// FormatExchange renders a completed request and its response as plain text.
func FormatExchange(res *resty.Response) string {
	responseUrl := res.Request.URL
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			responseUrl = redirected.String()
		}
	}

	return fmt.Sprintf(
		exchangeTemplate,
		res.Request.Method, res.Request.URL,
		formatHeaders(res.Request.RawRequest.Header),
		formatRequestBody(res.Request.RawRequest),
		res.Status(), responseUrl,
		formatHeaders(res.Header()),
		res.String(),
	)
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, s)
}

// DumpExchanges writes every response the client receives to `dir` as `<n>-<host>.txt`.
// `dir` is created if needed, a failed write is reported to `tel` and never fails the request.
func DumpExchanges(client *resty.Client, dir string, tel telemetry.API) error {
	assert.NotNil(tel)
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	var counter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		n := atomic.AddUint64(&counter, 1)
		name := fmt.Sprintf("%03d-%s.txt", n, fileSafe(res.Request.RawRequest.URL.Host))
		err := os.WriteFile(filepath.Join(dir, name), []byte(FormatExchange(res)), 0644)
		if err != nil {
			tel.ReportWarning(report_dump_write, err, name)
		}
		return nil
	})
	return nil
}
