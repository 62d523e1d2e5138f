package sheet

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ErrNoRows is returned by WriteXLSX when every table is empty, nothing is written in that case.
var ErrNoRows = errors.New("sheet: no rows to write")

const defaultSheet = "Sheet1"

// Normalize turns values that cannot be stored in a cell (NaN, ±Inf) into nil.
func Normalize(value any) any {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(v)) {
			return nil
		}
	}
	return value
}

func writeTable(f *excelize.File, t *Table, headerStyle int) error {
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	err := f.SetSheetRow(t.Name, "A1", &header)
	if err != nil {
		return err
	}
	err = f.SetRowStyle(t.Name, 1, 1, headerStyle)
	if err != nil {
		return err
	}

	for i, row := range t.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = Normalize(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		err = f.SetSheetRow(t.Name, cell, &cells)
		if err != nil {
			return err
		}
	}

	return f.SetPanes(t.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// WriteXLSX writes every non-empty table as its own sheet, in order. Parent directories
// of `path` are created.
func WriteXLSX(path string, tables ...*Table) error {
	var nonEmpty []*Table
	for _, t := range tables {
		if t != nil && len(t.Rows) > 0 {
			nonEmpty = append(nonEmpty, t)
		}
	}
	if len(nonEmpty) == 0 {
		return ErrNoRows
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}

	for i, t := range nonEmpty {
		if i == 0 {
			err = f.SetSheetName(defaultSheet, t.Name)
		} else {
			_, err = f.NewSheet(t.Name)
		}
		if err != nil {
			return fmt.Errorf("create sheet %s: %w", t.Name, err)
		}
		err = writeTable(f, t, headerStyle)
		if err != nil {
			return fmt.Errorf("write sheet %s: %w", t.Name, err)
		}
	}
	f.SetActiveSheet(0)

	dir := filepath.Dir(path)
	if dir != "" {
		err = os.MkdirAll(dir, 0755)
		if err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// ReadXLSX reads back every sheet of a workbook, the first row of each sheet is taken as the
// header and every cell is read as its formatted string. A row with cells past the header is
// an error, the extra values would have no column.
func ReadXLSX(path string) ([]*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tables []*Table
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}

		t := &Table{Name: name}
		if len(rows) > 0 {
			t.Columns = rows[0]
		}
		for i, r := range rows[min(1, len(rows)):] {
			if len(r) > len(t.Columns) {
				return nil, fmt.Errorf("read sheet %s: row %d has %d cells but the header has %d", name, i+2, len(r), len(t.Columns))
			}
			row := make([]any, len(t.Columns))
			for i := range row {
				if i < len(r) {
					row[i] = r[i]
				} else {
					row[i] = ""
				}
			}
			t.Rows = append(t.Rows, row)
		}
		tables = append(tables, t)
	}
	return tables, nil
}
