package qedu

import (
	"context"
	"fmt"

	"observatorio-backend/internal/browser"
	"observatorio-backend/internal/components/assert"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/sheet"
	"observatorio-backend/lib/htmlutil"
)

const (
	report_learning_year    = "year"
	report_learning_stage   = "stage"
	report_learning_subject = "subject"
	report_learning_dedup   = "dedup"
)

const (
	indicatorAdequate    = "Aprendizado Adequado"
	indicatorLevelPrefix = "Nível - "
	unitPercent          = "%"
)

var learningColumns = []string{
	"Ano Calendário",
	"Etapa de Ensino",
	"Ano Escolar",
	"Disciplina",
	"Indicador",
	"Valor",
	"Unidade",
}

// Learning collects the "aprendizado adequado" highlight and the per level bars for every
// (year, stage, subject) whose subject button could be clicked.
func Learning(ctx context.Context, page browser.Page, tel telemetry.API, cfg Config) (tables []*sheet.Table, err error) {
	assert.NotNil(page)
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("qedu.learning", tel)

	table := sheet.NewTable("Aprendizado", learningColumns...)
	tables = []*sheet.Table{table}
	defer finishLearning(table, tel)
	defer recoverAbort(&err)

	if err = page.Navigate(ctx, cfg.LearningURL()); err != nil {
		return tables, err
	}

	for _, year := range cfg.SaebYears {
		if err = ctx.Err(); err != nil {
			return tables, err
		}
		tel.ReportInfo("year", year)
		if !page.ClickText(ctx, year, cfg.LearningClick) {
			tel.ReportWarning(report_learning_year, "button not clickable, skipping", year)
			continue
		}

		for _, stage := range cfg.Stages {
			if !page.ClickText(ctx, stage.Button, cfg.LearningClick) {
				tel.ReportWarning(report_learning_stage, "button not clickable, skipping", year, stage.Button)
				continue
			}

			for _, subject := range cfg.Subjects {
				if err = ctx.Err(); err != nil {
					return tables, err
				}
				if !clickSubject(ctx, page, subject, cfg.LearningClick) {
					tel.ReportWarning(report_learning_subject, "button not clickable, skipping", year, stage.Button, subject.Name)
					continue
				}

				if err = readLearningScreen(ctx, page, tel, table, year, stage, subject); err != nil {
					return tables, err
				}
			}
		}
	}

	return tables, nil
}

func readLearningScreen(
	ctx context.Context,
	page browser.Page,
	tel telemetry.API,
	table *sheet.Table,
	year string,
	stage Stage,
	subject Subject,
) error {
	html, err := page.HTML(ctx)
	if err != nil {
		return fmt.Errorf("read %s %s %s: %w", year, stage.Grade, subject.Name, err)
	}
	doc, err := htmlutil.ParseDocument(html)
	if err != nil {
		return fmt.Errorf("parse %s %s %s: %w", year, stage.Grade, subject.Name, err)
	}

	if adequate, ok := ExtractAdequate(doc); ok {
		table.Append(year, stage.Name, stage.Grade, subject.Name, indicatorAdequate, adequate, unitPercent)
		tel.ReportDebug("adequate", year, stage.Grade, subject.Name, adequate)
	}
	for _, level := range ExtractLevelBlocks(doc) {
		table.Append(year, stage.Name, stage.Grade, subject.Name, indicatorLevelPrefix+level.Level, level.Value, unitPercent)
	}
	return nil
}

// finishLearning coerces the value column to numbers, unparsable values become empty
// cells, and drops the duplicate rows nested level blocks produce.
func finishLearning(table *sheet.Table, tel telemetry.API) {
	col := table.Column("Valor")
	for _, row := range table.Rows {
		raw, ok := row[col].(string)
		if !ok {
			continue
		}
		if v, ok := ParseDecimal(raw); ok {
			row[col] = v
		} else {
			row[col] = nil
		}
	}
	if removed := table.Dedup(); removed > 0 {
		tel.ReportDebug(report_learning_dedup, removed)
	}
}
