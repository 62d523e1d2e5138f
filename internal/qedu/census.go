package qedu

import (
	"context"
	"strconv"
	"strings"

	"observatorio-backend/internal/browser"
	"observatorio-backend/internal/components/assert"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/sheet"
)

const (
	report_census_year    = "year"
	report_census_network = "network"
	report_census_filter  = "filter"
	report_census_schools = "schools"
	report_census_main    = "main"
)

const schoolsUnavailable = "N/D"

// Census reads the school count and the per modality enrollments shown for each
// (filter, year) of the census page.
func Census(ctx context.Context, page browser.Page, tel telemetry.API, cfg Config) (tables []*sheet.Table, err error) {
	assert.NotNil(page)
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("qedu.census", tel)

	schools := sheet.NewTable("Qtd_Escolas", "Ano", "Filtro Aplicado", "Total Escolas")
	enrollments := sheet.NewTable("Matriculas_Detalhadas", "Ano", "Filtro Aplicado", "Modalidade", "Matrículas")
	tables = []*sheet.Table{schools, enrollments}
	defer enrollments.Dedup()
	defer recoverAbort(&err)

	if err = page.Navigate(ctx, cfg.CensusURL()); err != nil {
		return tables, err
	}

	for _, filter := range cfg.CensusFilters {
		tel.ReportInfo("filter", filter)

		for _, year := range cfg.CensusYears {
			if err = ctx.Err(); err != nil {
				return tables, err
			}
			if !page.SelectOption(ctx, cfg.YearSelect, year, cfg.Settle.Year) {
				tel.ReportWarning(report_census_year, "year not available, skipping", year)
				continue
			}
			if !page.SelectOption(ctx, cfg.NetworkSelect, cfg.Network, cfg.Settle.Network) {
				tel.ReportWarning(report_census_network, "network not selected", year, cfg.Network)
			}
			if !page.SelectOption(ctx, cfg.FilterSelect, filter, cfg.Settle.CensusFilter) {
				tel.ReportWarning(report_census_filter, "filter not found for this year, continuing", year, filter)
			}

			total, textErr := page.InnerText(ctx, cfg.SchoolsXPath)
			if textErr != nil {
				tel.ReportWarning(report_census_schools, "school count not visible", year, filter)
				total = schoolsUnavailable
			}
			schools.Append(year, filter, strings.TrimSpace(total))

			mainText, textErr := page.InnerText(ctx, cfg.MainXPath)
			if textErr != nil {
				tel.ReportWarning(report_census_main, textErr, year, filter)
				continue
			}
			yearNum, _ := strconv.Atoi(year)
			matches := MatchModalities(strings.Split(mainText, "\n"), cfg.ModalityTerms, yearNum)
			if len(matches) == 0 {
				tel.ReportWarning(report_census_main, "no enrollments on screen", year, filter)
			}
			for _, m := range matches {
				enrollments.Append(year, filter, m.Modality, m.Count)
			}
			tel.ReportInfo("year collected", year, "schools", total, "enrollments", len(matches))
		}
	}

	return tables, nil
}
