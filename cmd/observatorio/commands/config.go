package commands

import (
	"time"

	"observatorio-backend/internal/browser"
	"observatorio-backend/internal/qedu"
	"observatorio-backend/internal/sources"
)

type BrowserConfig struct {
	Headless        bool   `json:"headless"`
	UserAgent       string `json:"user_agent"`
	WindowWidth     int    `json:"window_width"`
	WindowHeight    int    `json:"window_height"`
	InitialSettleMs int    `json:"initial_settle_ms"`
	ClickTimeoutMs  int    `json:"click_timeout_ms"`
	ScrollSettleMs  int    `json:"scroll_settle_ms"`
	ClickSettleMs   int    `json:"click_settle_ms"`
	SelectTimeoutMs int    `json:"select_timeout_ms"`
}

type QeduConfig struct {
	BaseURL          string   `json:"base_url"`
	MunicipalityCode string   `json:"municipality_code"`
	MunicipalitySlug string   `json:"municipality_slug"`
	SaebYears        []string `json:"saeb_years"`
	CensusYears      []string `json:"census_years"`
	CensusFilters    []string `json:"census_filters"`
	Network          string   `json:"network"`
	// Outputs maps a job name to the spreadsheet it writes.
	Outputs map[string]string `json:"outputs"`
}

type SourcesConfig struct {
	MetadataFile      string  `json:"metadata_file"`
	Cron              string  `json:"cron"`
	TimeoutMs         int     `json:"timeout_ms"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Parallel          int     `json:"parallel"`
}

type StaticConfig struct {
	EnemOutput      string `json:"enem_output"`
	InepDir         string `json:"inep_dir"`
	DashboardOutput string `json:"dashboard_output"`
}

type Config struct {
	// Database is the sqlite file runs are recorded to, recording is off when empty.
	Database string        `json:"database"`
	Browser  BrowserConfig `json:"browser"`
	Qedu     QeduConfig    `json:"qedu"`
	Sources  SourcesConfig `json:"sources"`
	Static   StaticConfig  `json:"static"`
}

func ms(d time.Duration) int {
	return int(d / time.Millisecond)
}

func DefaultConfig() Config {
	options := browser.DefaultOptions()
	qcfg := qedu.DefaultConfig()
	scfg := sources.DefaultOptions()

	return Config{
		Database: "runs.db",
		Browser: BrowserConfig{
			Headless:        options.Headless,
			UserAgent:       options.UserAgent,
			WindowWidth:     options.WindowWidth,
			WindowHeight:    options.WindowHeight,
			InitialSettleMs: ms(options.InitialSettle),
			ClickTimeoutMs:  ms(options.ClickTimeout),
			ScrollSettleMs:  ms(options.ScrollSettle),
			ClickSettleMs:   ms(options.ClickSettle),
			SelectTimeoutMs: ms(options.SelectTimeout),
		},
		Qedu: QeduConfig{
			BaseURL:          qcfg.BaseURL,
			MunicipalityCode: qcfg.MunicipalityCode,
			MunicipalitySlug: qcfg.MunicipalitySlug,
			SaebYears:        qcfg.SaebYears,
			CensusYears:      qcfg.CensusYears,
			CensusFilters:    qcfg.CensusFilters,
			Network:          qcfg.Network,
			Outputs: map[string]string{
				"proficiency": "Dados_QEdu_Proficiencia.xlsx",
				"learning":    "Dados_QEdu_SJM_Historico.xlsx",
				"enrollments": "Censo_SJM_Matriculas_6_Itens_Garantidos.xlsx",
				"census":      "Censo_Escolar_SJM_Filtros_Detalhados.xlsx",
			},
		},
		Sources: SourcesConfig{
			MetadataFile:      "dados_educacao.json",
			Cron:              "0 6 * * *",
			TimeoutMs:         ms(scfg.Timeout),
			RequestsPerSecond: scfg.RequestsPerSecond,
			Parallel:          scfg.Parallel,
		},
		Static: StaticConfig{
			EnemOutput:      "Dados_ENEM_SJM_2017_2023.xlsx",
			InepDir:         ".",
			DashboardOutput: "Dados_Dashboard_Educacao.xlsx",
		},
	}
}

func (c Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:         c.Browser.Headless,
		WindowWidth:      c.Browser.WindowWidth,
		WindowHeight:     c.Browser.WindowHeight,
		IgnoreCertErrors: true,
		UserAgent:        c.Browser.UserAgent,
		InitialSettle:    time.Duration(c.Browser.InitialSettleMs) * time.Millisecond,
		ClickTimeout:     time.Duration(c.Browser.ClickTimeoutMs) * time.Millisecond,
		ScrollSettle:     time.Duration(c.Browser.ScrollSettleMs) * time.Millisecond,
		ClickSettle:      time.Duration(c.Browser.ClickSettleMs) * time.Millisecond,
		SelectTimeout:    time.Duration(c.Browser.SelectTimeoutMs) * time.Millisecond,
	}
}

// JobConfig overlays the configured municipality and year ranges on the built-in page layout.
func (c Config) JobConfig() qedu.Config {
	out := qedu.DefaultConfig()
	out.BaseURL = c.Qedu.BaseURL
	out.MunicipalityCode = c.Qedu.MunicipalityCode
	out.MunicipalitySlug = c.Qedu.MunicipalitySlug
	out.SaebYears = c.Qedu.SaebYears
	out.CensusYears = c.Qedu.CensusYears
	out.CensusFilters = c.Qedu.CensusFilters
	out.Network = c.Qedu.Network
	return out
}

func (c Config) SourcesOptions() sources.Options {
	out := sources.DefaultOptions()
	out.Timeout = time.Duration(c.Sources.TimeoutMs) * time.Millisecond
	out.RequestsPerSecond = c.Sources.RequestsPerSecond
	out.Parallel = c.Sources.Parallel
	return out
}
