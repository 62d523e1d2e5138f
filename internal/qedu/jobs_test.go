package qedu

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"observatorio-backend/internal/browser"
	"observatorio-backend/internal/browser/browsertest"
	"observatorio-backend/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://qedu.test"
	cfg.Settle = Settle{}
	return cfg
}

var screenBase = map[string]int{
	"2023":              10,
	"2021":              20,
	"5º ano":            1,
	"9º ano":            2,
	"Língua Portuguesa": 0,
	"Português":         0,
	"Matemática":        5,
}

// learningScreen renders the level bars of whatever (year, stage, subject) was last clicked.
func learningScreen(state browsertest.State) string {
	year := state.LastClick("2023", "2021")
	stage := state.LastClick("5º ano", "9º ano")
	subject := state.LastClick("Língua Portuguesa", "Português", "Matemática")
	if year == "" || stage == "" || subject == "" {
		return "<html><body><p>Selecione</p></body></html>"
	}
	base := screenBase[year] + screenBase[stage] + screenBase[subject]

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<p>%d%% dos alunos têm aprendizado adequado</p><ul>", 50+base)
	for i, level := range ProficiencyLevels {
		fmt.Fprintf(&b, "<li>%s %d%%</li>", level, base+i)
	}
	// the same bars are rendered again in the mobile layout
	for i, level := range ProficiencyLevels {
		fmt.Fprintf(&b, "<li>%s %d%%</li>", level, base+i)
	}
	b.WriteString("</ul></body></html>")
	return b.String()
}

func clickable(texts ...string) map[string]bool {
	out := map[string]bool{}
	for _, t := range texts {
		out[t] = true
	}
	return out
}

func TestProficiency(t *testing.T) {
	page := &browsertest.Page{
		Clickable: clickable("2023", "2021", "5º ano", "9º ano", "Língua Portuguesa", "Matemática"),
		Render:    learningScreen,
	}
	tel := telemetry.NewRecorder()

	tables, err := Proficiency(context.Background(), page, tel, testConfig())
	require.NoError(t, err)
	require.Len(t, tables, 1)

	table := tables[0]
	require.Equal(t, []string{"Ano Calendário", "Etapa", "Disciplina", "Nível de Proficiência", "Porcentagem"}, table.Columns)
	// 2 years * 2 stages * 2 subjects * 4 levels
	require.Equal(t, 32, table.Len())
	require.Equal(t, []any{"2023", "Anos Iniciais (5º ano)", "Língua Portuguesa", "Insuficiente", 11.0}, table.Rows[0])
	require.Equal(t, []any{"2021", "Anos Finais (9º ano)", "Matemática", "Avançado", 30.0}, table.Rows[31])

	require.Equal(t, "navigate https://qedu.test/municipio/3305109-sao-joao-de-meriti/aprendizado", page.Log()[0])
	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, "qedu.proficiency: year"), 3)
}

func TestProficiencyUsesSubjectAlias(t *testing.T) {
	page := &browsertest.Page{
		Clickable: clickable("2023", "5º ano", "Português"),
		Render:    learningScreen,
	}
	cfg := testConfig()
	cfg.Stages = cfg.Stages[:1]

	tables, err := Proficiency(context.Background(), page, telemetry.NewRecorder(), cfg)
	require.NoError(t, err)
	require.True(t, page.HasLog("click Português"))

	// Matemática cannot be clicked but the screen is still read, showing Português.
	require.Equal(t, 8, tables[0].Len())
	require.Equal(t, "Matemática", tables[0].Rows[4][2])
	require.Equal(t, 11.0, tables[0].Rows[4][4])
}

func TestProficiencyAbortKeepsRows(t *testing.T) {
	page := &browsertest.Page{
		Clickable:     clickable("2023", "2021", "5º ano", "9º ano", "Língua Portuguesa", "Matemática"),
		Render:        learningScreen,
		FailHTMLAfter: 1,
	}

	tables, err := Proficiency(context.Background(), page, telemetry.NewRecorder(), testConfig())
	require.Error(t, err)
	require.ErrorContains(t, err, "target crashed")
	require.Equal(t, 4, tables[0].Len())
}

func TestJobClickTiming(t *testing.T) {
	cfg := testConfig()
	cfg.SaebYears = []string{"2023"}
	require.Equal(t, browser.Click{
		Timeout:      3 * time.Second,
		ScrollSettle: 500 * time.Millisecond,
		Settle:       3 * time.Second,
		JSFirst:      true,
	}, cfg.ProficiencyClick)

	page := &browsertest.Page{
		Clickable: clickable("2023", "5º ano", "9º ano", "Língua Portuguesa", "Matemática"),
		Render:    learningScreen,
	}
	_, err := Proficiency(context.Background(), page, telemetry.NewRecorder(), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, page.Clicks())
	for _, click := range page.Clicks() {
		require.Equal(t, cfg.ProficiencyClick, click)
	}

	page = &browsertest.Page{
		Clickable: clickable("2023", "5º ano", "9º ano", "Língua Portuguesa", "Matemática"),
		Render:    learningScreen,
	}
	_, err = Learning(context.Background(), page, telemetry.NewRecorder(), cfg)
	require.NoError(t, err)
	require.NotEmpty(t, page.Clicks())
	for _, click := range page.Clicks() {
		require.Zero(t, click)
	}
}

func TestRecoverAbort(t *testing.T) {
	aborted := func() (err error) {
		defer recoverAbort(&err)
		panic("stale element")
	}
	require.EqualError(t, aborted(), "job aborted: stale element")

	finished := func() (err error) {
		defer recoverAbort(&err)
		return nil
	}
	require.NoError(t, finished())
}

func TestProficiencyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page := &browsertest.Page{
		Clickable: clickable("2023", "2021", "5º ano", "9º ano", "Língua Portuguesa", "Matemática"),
		Render:    learningScreen,
		OnClick: func(text string) {
			if text == "Matemática" {
				cancel()
			}
		},
	}

	tables, err := Proficiency(ctx, page, telemetry.NewRecorder(), testConfig())
	require.ErrorIs(t, err, context.Canceled)
	// only the first subject screen was read
	require.Equal(t, 4, tables[0].Len())
}

func TestLearning(t *testing.T) {
	page := &browsertest.Page{
		Clickable: clickable("2023", "5º ano", "9º ano", "Português"),
		Render:    learningScreen,
	}
	tel := telemetry.NewRecorder()

	tables, err := Learning(context.Background(), page, tel, testConfig())
	require.NoError(t, err)

	table := tables[0]
	require.Equal(t, learningColumns, table.Columns)
	// 2 stages * Português only * (adequate + 4 levels), the mobile bars are duplicates
	require.Equal(t, 10, table.Len())
	require.Equal(t, []any{"2023", "Anos Iniciais", "5º ano", "Língua Portuguesa", "Aprendizado Adequado", 61.0, "%"}, table.Rows[0])
	require.Equal(t, []any{"2023", "Anos Iniciais", "5º ano", "Língua Portuguesa", "Nível - Básico", 12.0, "%"}, table.Rows[2])
	require.Equal(t, []any{"2023", "Anos Finais", "9º ano", "Língua Portuguesa", "Nível - Avançado", 15.0, "%"}, table.Rows[9])

	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, "qedu.learning: subject"), 2)
}

// learningAbortPage reads the 5º ano screen and then fails on the 9º ano one.
func learningAbortPage() *browsertest.Page {
	return &browsertest.Page{
		Clickable: clickable("2023", "5º ano", "9º ano", "Português"),
		Render:    learningScreen,
	}
}

func TestLearningAbortKeepsFinishedRows(t *testing.T) {
	testCases := []struct {
		name     string
		page     func() *browsertest.Page
		expected string
	}{
		{
			name: "page crash",
			page: func() *browsertest.Page {
				page := learningAbortPage()
				page.FailHTMLAfter = 1
				return page
			},
			expected: "target crashed",
		},
		{
			name: "panic",
			page: func() *browsertest.Page {
				page := learningAbortPage()
				page.OnClick = func(text string) {
					if text == "9º ano" {
						panic("stale element")
					}
				}
				return page
			},
			expected: "job aborted: stale element",
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tables, err := Learning(context.Background(), test.page(), telemetry.NewRecorder(), testConfig())
			require.ErrorContains(t, err, test.expected)

			// the mobile bars are deduplicated and the values coerced even after the abort
			table := tables[0]
			require.Equal(t, 5, table.Len())
			require.Equal(t, []any{"2023", "Anos Iniciais", "5º ano", "Língua Portuguesa", "Aprendizado Adequado", 61.0, "%"}, table.Rows[0])
			require.Equal(t, []any{"2023", "Anos Iniciais", "5º ano", "Língua Portuguesa", "Nível - Avançado", 14.0, "%"}, table.Rows[4])
		})
	}
}

var testFilters = []string{"Com Ensino Infantil Regular", "Com Ensino Fundamental Regular"}

func censusPage(cfg Config) *browsertest.Page {
	blockIndex := map[string]int{}
	for i, b := range cfg.StageBlocks {
		blockIndex[b.XPath] = i
	}

	return &browsertest.Page{
		Options: map[string][]string{
			cfg.YearSelect:    {"2024", "2023"},
			cfg.NetworkSelect: {"Estadual", "Municipal"},
			cfg.FilterSelect:  append([]string{"Todas"}, testFilters...),
		},
		Nodes: func(state browsertest.State, xpath string) (string, bool) {
			year := state.Selected[cfg.YearSelect]
			filter := state.Selected[cfg.FilterSelect]
			base := 100
			if strings.Contains(filter, "Fundamental") {
				base = 200
			}
			if year == "2023" {
				base += 50
			}

			switch xpath {
			case cfg.SchoolsXPath:
				if strings.Contains(filter, "Fundamental") {
					return "", false
				}
				return " 87 ", true
			case cfg.MainXPath:
				return fmt.Sprintf("Matrículas %s\nCreche 5.200\nCreche 5.200\n1º ano %d\nEJA %s", year, base, year), true
			}

			i, ok := blockIndex[xpath]
			if !ok || cfg.StageBlocks[i].Name == "EJA" {
				return "", false
			}
			return fmt.Sprintf("%s %s %d", cfg.StageBlocks[i].Name, year, base+i), true
		},
	}
}

func TestEnrollments(t *testing.T) {
	cfg := testConfig()
	cfg.CensusYears = []string{"2024", "2023", "2022"}
	page := censusPage(cfg)
	tel := telemetry.NewRecorder()

	tables, err := Enrollments(context.Background(), page, tel, cfg)
	require.NoError(t, err)

	table := tables[0]
	require.Equal(t, []string{"Ano", "Filtro Geral", "Etapa", "Matrículas"}, table.Columns)
	// 2 filters * 2 available years * 6 stage cards
	require.Equal(t, 24, table.Len())

	require.Equal(t, []any{"2024", "Com Ensino Fundamental Regular", "Creche", 200}, table.Rows[0])
	require.Equal(t, []any{"2024", "Com Ensino Fundamental Regular", "EJA", 0}, table.Rows[4])
	require.Equal(t, []any{"2024", "Com Ensino Fundamental Regular", "Educação Especial", 205}, table.Rows[5])
	require.Equal(t, []any{"2023", "Com Ensino Fundamental Regular", "Creche", 250}, table.Rows[6])
	require.Equal(t, []any{"2024", "Com Ensino Infantil Regular", "Creche", 100}, table.Rows[12])
	require.Equal(t, []any{"2023", "Com Ensino Infantil Regular", "Educação Especial", 155}, table.Rows[23])

	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, "qedu.enrollments: year"), 2)
}

func TestEnrollmentsAbortKeepsSortedRows(t *testing.T) {
	cfg := testConfig()
	// appended oldest first, sorted newest first
	cfg.CensusYears = []string{"2023", "2024"}

	newPage := func() *browsertest.Page {
		page := censusPage(cfg)
		page.OnSelect = func(xpath, option string) {
			if option == "Com Ensino Fundamental Regular" {
				panic("select detached")
			}
		}
		return page
	}

	tables, err := Enrollments(context.Background(), newPage(), telemetry.NewRecorder(), cfg)
	require.EqualError(t, err, "job aborted: select detached")

	table := tables[0]
	// the infantil filter over both years
	require.Equal(t, 12, table.Len())
	require.Equal(t, []any{"2024", "Com Ensino Infantil Regular", "Creche", 100}, table.Rows[0])
	require.Equal(t, []any{"2024", "Com Ensino Infantil Regular", "Educação Especial", 105}, table.Rows[5])
	require.Equal(t, []any{"2023", "Com Ensino Infantil Regular", "Creche", 150}, table.Rows[6])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	page := censusPage(cfg)
	page.OnSelect = func(xpath, option string) {
		if option == "Com Ensino Fundamental Regular" {
			cancel()
		}
	}
	tables, err = Enrollments(ctx, page, telemetry.NewRecorder(), cfg)
	require.ErrorIs(t, err, context.Canceled)
	// the fundamental 2023 cards were read before the cancellation was seen
	require.Equal(t, 18, tables[0].Len())
	require.Equal(t, "Com Ensino Fundamental Regular", tables[0].Rows[0][1])
	require.Equal(t, "Com Ensino Infantil Regular", tables[0].Rows[6][1])
}

func TestCensusAbortKeepsDedupedRows(t *testing.T) {
	cfg := testConfig()
	cfg.CensusYears = []string{"2024"}
	page := censusPage(cfg)
	page.OnSelect = func(xpath, option string) {
		if option == "Com Ensino Fundamental Regular" {
			panic("select detached")
		}
	}

	tables, err := Census(context.Background(), page, telemetry.NewRecorder(), cfg)
	require.EqualError(t, err, "job aborted: select detached")
	require.Len(t, tables, 2)

	require.Equal(t, [][]any{{"2024", "Com Ensino Infantil Regular", "87"}}, tables[0].Rows)
	// "Creche 5.200" is shown twice on the page
	require.Equal(t, [][]any{
		{"2024", "Com Ensino Infantil Regular", "Creche", 5200},
		{"2024", "Com Ensino Infantil Regular", "1º ano", 100},
	}, tables[1].Rows)
}

func TestCensus(t *testing.T) {
	cfg := testConfig()
	cfg.CensusYears = []string{"2024"}
	page := censusPage(cfg)
	tel := telemetry.NewRecorder()

	tables, err := Census(context.Background(), page, tel, cfg)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	schools := tables[0]
	require.Equal(t, "Qtd_Escolas", schools.Name)
	require.Equal(t, [][]any{
		{"2024", "Com Ensino Infantil Regular", "87"},
		{"2024", "Com Ensino Fundamental Regular", "N/D"},
	}, schools.Rows)

	enrollments := tables[1]
	require.Equal(t, "Matriculas_Detalhadas", enrollments.Name)
	require.Equal(t, [][]any{
		{"2024", "Com Ensino Infantil Regular", "Creche", 5200},
		{"2024", "Com Ensino Infantil Regular", "1º ano", 100},
		{"2024", "Com Ensino Fundamental Regular", "Creche", 5200},
		{"2024", "Com Ensino Fundamental Regular", "1º ano", 200},
	}, enrollments.Rows)

	require.Len(t, tel.Reports(telemetry.REPORT_WARNING, "qedu.census: schools"), 1)
}

func TestLookup(t *testing.T) {
	require.Equal(t, []string{"census", "enrollments", "learning", "proficiency"}, JobNames())
	_, ok := Lookup("census")
	require.True(t, ok)
	_, ok = Lookup("ideb")
	require.False(t, ok)
}
