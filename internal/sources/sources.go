// Package sources checks that the public data sources the observatory draws from are
// reachable, and records the outcome in the local education metadata file.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"observatorio-backend/internal/components/assert"
	"observatorio-backend/internal/components/chrono"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	report_checker_check = "check"
	report_checker_sync  = "sync"
	report_checker_watch = "watch"
	report_checker_dump  = "dump"
)

type Kind string

const (
	KindAPI Kind = "API"
	KindWeb Kind = "Web"
)

type Source struct {
	Name string
	URL  string
	Kind Kind
}

var Defaults = []Source{
	{
		Name: "SIDRA/IBGE (Educação)",
		URL:  "https://servicodados.ibge.gov.br/api/v3/agregados/5938/periodos/2023/variaveis/63?localidades=N6[3305109]",
		Kind: KindAPI,
	},
	{
		Name: "Dados.gov.br (INEP/IDEB)",
		URL:  "https://dados.gov.br/api/publico/indicadores/educacao/municipio/3305109",
		Kind: KindAPI,
	},
	{
		Name: "QEdu/Portal Transparência (Referência)",
		URL:  "https://qedu.org.br/municipio/3305109-sao-joao-de-meriti",
		Kind: KindWeb,
	},
	{
		Name: "API Localidades (Estrutura)",
		URL:  "https://servicodados.ibge.gov.br/api/v1/localidades/municipios/3305109",
		Kind: KindAPI,
	},
}

type State string

const (
	Online  State = "Online"
	Offline State = "Offline"
)

const detailTimeout = "Timeout"

type Status struct {
	Source Source
	State  State
	// Detail is the status code or "Timeout" of an offline source.
	Detail  string
	Latency time.Duration
}

func (s Status) String() string {
	return fmt.Sprintf("%s: %s", s.Source.Name, s.State)
}

type Options struct {
	Timeout time.Duration
	// RequestsPerSecond bounds the requests made across all sources.
	RequestsPerSecond float64
	// Parallel is how many sources are checked at once.
	Parallel  int
	UserAgent string
	// DumpDir, when set, receives a text dump of every response.
	DumpDir string
}

func DefaultOptions() Options {
	return Options{
		Timeout:           12 * time.Second,
		RequestsPerSecond: 2,
		Parallel:          2,
		UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	}
}

type Checker struct {
	http    *resty.Client
	sources []Source
	options Options
	clock   chrono.API
	tel     telemetry.API
}

func NewChecker(tel telemetry.API, clock chrono.API, sources []Source, options Options) *Checker {
	assert.NotNil(tel)
	assert.NotNil(clock)
	assert.NotEmpty(sources, "sources")

	tel = telemetry.NewScopedAPI("sources", tel)

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(options.Timeout)
	if options.UserAgent != "" {
		client.SetHeader("user-agent", options.UserAgent)
	}

	limit := rate.Inf
	if options.RequestsPerSecond > 0 {
		limit = rate.Limit(options.RequestsPerSecond)
	}
	rateLimiter := rate.NewLimiter(limit, max(1, options.Parallel))
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, tel, "observatorio.sources")
	if options.DumpDir != "" {
		err := restyutil.DumpExchanges(client, options.DumpDir, tel)
		if err != nil {
			tel.ReportWarning(report_checker_dump, err, options.DumpDir)
		}
	}

	return &Checker{
		http:    client,
		sources: sources,
		options: options,
		clock:   clock,
		tel:     tel,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Checker) checkOne(ctx context.Context, source Source) Status {
	start := time.Now()
	res, err := c.http.R().SetContext(ctx).Get(source.URL)
	status := Status{Source: source, Latency: time.Since(start)}

	switch {
	case err != nil && isTimeout(err):
		status.State = Offline
		status.Detail = detailTimeout
	case err != nil:
		status.State = Offline
		status.Detail = err.Error()
	case res.StatusCode() == http.StatusOK:
		status.State = Online
	default:
		status.State = Offline
		status.Detail = fmt.Sprint(res.StatusCode())
	}

	if status.State == Offline {
		c.tel.ReportWarning(report_checker_check, "source unavailable", source.Name, status.Detail)
	} else {
		c.tel.ReportInfo("source online", source.Name, status.Latency.Round(time.Millisecond).String())
	}
	return status
}

// Check requests every source once, an unreachable source is reported Offline and never
// fails the check. Statuses are returned in source order.
func (c *Checker) Check(ctx context.Context) []Status {
	statuses := make([]Status, len(c.sources))

	var group errgroup.Group
	group.SetLimit(max(1, c.options.Parallel))
	for i, source := range c.sources {
		group.Go(func() error {
			statuses[i] = c.checkOne(ctx, source)
			return nil
		})
	}
	_ = group.Wait()

	return statuses
}

// AnyOnline reports whether at least one source answered.
func AnyOnline(statuses []Status) bool {
	for _, s := range statuses {
		if s.State == Online {
			return true
		}
	}
	return false
}
