package sheet

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Table is a named sheet of flat rows, columns are written in declaration order.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: columns}
}

// Append adds a row, the amount of values must match the amount of columns.
func (t *Table) Append(values ...any) {
	if len(values) != len(t.Columns) {
		panic(fmt.Sprintf(
			"sheet %s: row has %d values, expected %d",
			t.Name, len(values), len(t.Columns),
		))
	}
	t.Rows = append(t.Rows, values)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of a column by name, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

func cellKey(value any) string {
	switch v := value.(type) {
	case nil:
		return "<nil>"
	case float64:
		if math.IsNaN(v) {
			return "NaN"
		}
	}
	return fmt.Sprintf("%T:%v", value, value)
}

func rowKey(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = cellKey(v)
	}
	return strings.Join(parts, "\x1f")
}

// Dedup drops rows that are exact duplicates of an earlier row, order is preserved.
func (t *Table) Dedup() (removed int) {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := t.Rows[:0]
	for _, row := range t.Rows {
		key := rowKey(row)
		if _, ok := seen[key]; ok {
			removed++
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, row)
	}
	t.Rows = kept
	return removed
}

// SortStable sorts rows with `less`, rows comparing equal keep their relative order.
func (t *Table) SortStable(less func(a, b []any) bool) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return less(t.Rows[i], t.Rows[j])
	})
}
