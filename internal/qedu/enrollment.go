package qedu

import (
	"context"
	"strconv"

	"observatorio-backend/internal/browser"
	"observatorio-backend/internal/components/assert"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/sheet"
)

const (
	report_enrollments_year    = "year"
	report_enrollments_network = "network"
	report_enrollments_filter  = "filter"
	report_enrollments_block   = "block"
)

// Enrollments reads the enrollment count of every census stage card for each
// (filter, year). Exactly one row is written per card, unreadable cards count 0.
func Enrollments(ctx context.Context, page browser.Page, tel telemetry.API, cfg Config) (tables []*sheet.Table, err error) {
	assert.NotNil(page)
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("qedu.enrollments", tel)

	table := sheet.NewTable("Matriculas", "Ano", "Filtro Geral", "Etapa", "Matrículas")
	tables = []*sheet.Table{table}
	defer sortEnrollments(table, cfg)
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
				tel.ReportWarning(report_enrollments_year, "year not available, skipping", year)
				continue
			}
			if !page.SelectOption(ctx, cfg.NetworkSelect, cfg.Network, cfg.Settle.Network) {
				tel.ReportWarning(report_enrollments_network, "network not selected", year, cfg.Network)
			}
			if !page.SelectOption(ctx, cfg.FilterSelect, filter, cfg.Settle.Filter) {
				tel.ReportWarning(report_enrollments_filter, "filter not selected", year, filter)
			}

			yearNum, _ := strconv.Atoi(year)
			found := 0
			for _, block := range cfg.StageBlocks {
				count := 0
				text, textErr := page.TextContent(ctx, block.XPath)
				if textErr != nil {
					tel.ReportDebug(report_enrollments_block, block.Name, textErr)
				} else if n, ok := LargestCount(text, yearNum); ok {
					count = n
				}
				if count > 0 {
					found++
				}
				table.Append(year, filter, block.Name, count)
			}
			tel.ReportInfo("year collected", year, "values found", found, "rows", len(cfg.StageBlocks))
		}
	}

	return tables, nil
}

// sortEnrollments orders rows by filter ascending, year descending, then stage card order.
func sortEnrollments(table *sheet.Table, cfg Config) {
	table.SortStable(func(a, b []any) bool {
		filterA, filterB := a[1].(string), b[1].(string)
		if filterA != filterB {
			return filterA < filterB
		}
		yearA, yearB := a[0].(string), b[0].(string)
		if yearA != yearB {
			return yearA > yearB
		}
		return cfg.stageRank(a[2].(string)) < cfg.stageRank(b[2].(string))
	})
}
