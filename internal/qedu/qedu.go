// Package qedu scrapes the public QEdu pages of a municipality.
//
// Every job walks a fixed set of (year, stage, subject) buttons or (filter, year) dropdowns
// on a browser.Page, reads the rendered page after each step and accumulates flat rows.
// A step that cannot be performed is skipped. A failure of the page itself stops the job
// and the rows collected until then are returned along with the error.
package qedu

import (
	"context"
	"fmt"
	"sort"

	"observatorio-backend/internal/browser"
	"observatorio-backend/internal/components/telemetry"
	"observatorio-backend/internal/sheet"
)

// Job runs one scrape over an open page. The tables are returned even when err is not nil.
type Job func(ctx context.Context, page browser.Page, tel telemetry.API, cfg Config) ([]*sheet.Table, error)

var jobs = map[string]Job{
	"proficiency": Proficiency,
	"learning":    Learning,
	"enrollments": Enrollments,
	"census":      Census,
}

func Lookup(name string) (Job, bool) {
	job, ok := jobs[name]
	return job, ok
}

func JobNames() []string {
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// recoverAbort turns a panic during a job into the job's error.
func recoverAbort(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("job aborted: %v", r)
	}
}

// clickSubject clicks the subject button, trying its aliases when the name is not found.
func clickSubject(ctx context.Context, page browser.Page, subject Subject, click browser.Click) bool {
	if page.ClickText(ctx, subject.Name, click) {
		return true
	}
	for _, alias := range subject.Aliases {
		if page.ClickText(ctx, alias, click) {
			return true
		}
	}
	return false
}
