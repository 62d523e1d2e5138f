package qedu

import (
	"context"
	"fmt"

	"observatorio-backend/internal/browser"
	"observatorio-backend/internal/components/assert"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/sheet"
)

const (
	report_proficiency_year    = "year"
	report_proficiency_stage   = "stage"
	report_proficiency_extract = "extract"
)

// Proficiency collects the share of students in each SAEB proficiency level for every
// (year, stage, subject). The screen is read even when the subject button was not found,
// QEdu keeps the previous subject selected in that case.
func Proficiency(ctx context.Context, page browser.Page, tel telemetry.API, cfg Config) (tables []*sheet.Table, err error) {
	assert.NotNil(page)
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("qedu.proficiency", tel)

	table := sheet.NewTable(
		"Proficiencia",
		"Ano Calendário",
		"Etapa",
		"Disciplina",
		"Nível de Proficiência",
		"Porcentagem",
	)
	tables = []*sheet.Table{table}
	defer recoverAbort(&err)

	if err = page.Navigate(ctx, cfg.LearningURL()); err != nil {
		return tables, err
	}

	for _, year := range cfg.SaebYears {
		if err = ctx.Err(); err != nil {
			return tables, err
		}
		tel.ReportInfo("year", year)
		if !page.ClickText(ctx, year, cfg.ProficiencyClick) {
			tel.ReportWarning(report_proficiency_year, "button not clickable, skipping", year)
			continue
		}

		for _, stage := range cfg.Stages {
			if !page.ClickText(ctx, stage.Button, cfg.ProficiencyClick) {
				tel.ReportWarning(report_proficiency_stage, "button not clickable, skipping", year, stage.Button)
				continue
			}

			for _, subject := range cfg.Subjects {
				if err = ctx.Err(); err != nil {
					return tables, err
				}
				clickSubject(ctx, page, subject, cfg.ProficiencyClick)

				html, htmlErr := page.HTML(ctx)
				if htmlErr != nil {
					return tables, fmt.Errorf("read %s %s %s: %w", year, stage.Label(), subject.Name, htmlErr)
				}
				text, parseErr := PageText(html, " | ")
				if parseErr != nil {
					return tables, fmt.Errorf("parse %s %s %s: %w", year, stage.Label(), subject.Name, parseErr)
				}

				levels := ExtractLevels(text)
				if len(levels) == 0 {
					tel.ReportWarning(report_proficiency_extract, "no proficiency data on screen", year, stage.Label(), subject.Name)
					continue
				}
				for _, level := range levels {
					percentage, _ := ParseDecimal(level.Value)
					table.Append(year, stage.Label(), subject.Name, level.Level, percentage)
					tel.ReportDebug("level", level.Level, level.Value)
				}
			}
		}
	}

	return tables, nil
}
