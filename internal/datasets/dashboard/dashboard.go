// Package dashboard holds the series behind the education dashboard charts.
package dashboard

import (
	"fmt"
	"strconv"

	"observatorio-backend/internal/sheet"
)

type Series struct {
	Label  string
	Values []float64
}

// Chart is one chart of the dashboard, Years align with the values of every series.
type Chart struct {
	Name   string
	Years  []int
	Series []Series
}

// shortYears expands the two digit axis labels of the charts, "05" is 2005.
func shortYears(labels ...string) []int {
	years := make([]int, len(labels))
	for i, l := range labels {
		n, err := strconv.Atoi(l)
		if err != nil {
			panic(fmt.Sprintf("invalid year label %q", l))
		}
		years[i] = 2000 + n
	}
	return years
}

var chartYears = []int{2018, 2019, 2020, 2021, 2022, 2023, 2024}

var Ideb = []Chart{
	{
		Name:  "Anos Iniciais",
		Years: shortYears("05", "07", "09", "11", "13", "15", "17", "19", "21", "23"),
		Series: []Series{
			{Label: "Anos Iniciais", Values: []float64{3.7, 3.6, 4.0, 4.2, 4.5, 4.5, 4.6, 4.9, 4.6, 4.9}},
		},
	},
	{
		Name:  "Anos Finais",
		Years: shortYears("05", "07", "09", "11", "13", "15", "17", "19", "21", "23"),
		Series: []Series{
			{Label: "Anos Finais", Values: []float64{2.6, 2.5, 3.5, 3.5, 3.2, 3.8, 3.5, 3.6, 4.1, 4.2}},
		},
	},
}

// EnrollmentShares are the share of each stage within its group, in percent.
var EnrollmentShares = []Chart{
	{
		Name:  "Infantil",
		Years: chartYears,
		Series: []Series{
			{Label: "Pré-escola", Values: []float64{68.0, 68.5, 69.0, 69.5, 70.0, 70.4, 70.8}},
			{Label: "Creche", Values: []float64{32.0, 31.5, 31.0, 30.5, 30.0, 29.6, 29.2}},
		},
	},
	{
		Name:  "Fundamental",
		Years: chartYears,
		Series: []Series{
			{Label: "Anos Iniciais", Values: []float64{56.8, 56.8, 56.3, 56.9, 57.9, 57.9, 58.5}},
			{Label: "Anos Finais", Values: []float64{43.2, 43.2, 43.7, 43.1, 42.1, 42.1, 41.5}},
		},
	},
}

var Rates = []Chart{
	{
		Name:  "Distorção Idade-Série",
		Years: shortYears("18", "19", "20", "21", "22", "23", "24"),
		Series: []Series{
			{Label: "Fundamental", Values: []float64{29.8, 29.1, 28.4, 27.6, 26.9, 26.1, 25.4}},
			{Label: "Médio", Values: []float64{24.9, 24.3, 23.7, 23.1, 22.5, 21.9, 21.3}},
		},
	},
	{
		Name:  "Abandono",
		Years: shortYears("18", "19", "20", "21", "22", "23", "24"),
		Series: []Series{
			{Label: "Fundamental", Values: []float64{2.04, 1.88, 1.72, 1.56, 1.40, 1.25, 1.10}},
			{Label: "Médio", Values: []float64{3.08, 3.09, 3.10, 3.11, 3.13, 3.14, 3.16}},
		},
	},
}

var EnemComparison = Chart{
	Name:  "ENEM",
	Years: []int{2017, 2018, 2019, 2020, 2021, 2022, 2023},
	Series: []Series{
		{Label: "Brasil", Values: []float64{500.4, 514.4, 491.2, 232.8, 339.7, 349.8, 354.1}},
		{Label: "Rio de Janeiro", Values: []float64{542.5, 557.8, 534.1, 261.2, 374.5, 387.2, 360.6}},
		{Label: "São João De Meriti", Values: []float64{511.7, 529.1, 503.2, 218.9, 333.5, 349.2, 332.8}},
	},
}

var EnrollmentTotals = Chart{
	Name:  "Total de Matrículas",
	Years: chartYears,
	Series: []Series{
		{Label: "Total de Matrículas", Values: []float64{26188, 26363, 26009, 26119, 27895, 28499, 28377}},
	},
}

// appendCharts writes one row per (chart, series, year), the chart name is a column only
// when `withChart` is set.
func appendCharts(table *sheet.Table, withChart bool, charts ...Chart) {
	for _, c := range charts {
		for _, s := range c.Series {
			if len(s.Values) != len(c.Years) {
				panic(fmt.Sprintf("chart %s series %s: %d values for %d years", c.Name, s.Label, len(s.Values), len(c.Years)))
			}
			for i, year := range c.Years {
				if withChart {
					table.Append(year, c.Name, s.Label, s.Values[i])
				} else {
					table.Append(year, s.Label, s.Values[i])
				}
			}
		}
	}
}

// Tables returns the dashboard sheets in display order.
func Tables() []*sheet.Table {
	ideb := sheet.NewTable("IDEB", "Ano", "Etapa", "IDEB")
	appendCharts(ideb, false, Ideb...)

	shares := sheet.NewTable("Matriculas", "Ano", "Grupo", "Etapa", "Percentual")
	appendCharts(shares, true, EnrollmentShares...)

	rates := sheet.NewTable("Taxas", "Ano", "Indicador", "Nível", "Taxa (%)")
	appendCharts(rates, true, Rates...)

	comparison := sheet.NewTable("ENEM_Comparativo", "Ano", "Localidade", "Média")
	appendCharts(comparison, false, EnemComparison)

	totals := sheet.NewTable("Evolucao_Matriculas", "Ano", "Total de Matrículas")
	for i, year := range EnrollmentTotals.Years {
		totals.Append(year, int(EnrollmentTotals.Series[0].Values[i]))
	}

	return []*sheet.Table{ideb, shares, rates, comparison, totals}
}
