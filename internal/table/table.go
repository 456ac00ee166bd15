// Package table parses data artifacts (CSV, JSON, PDF) into rectangular
// tables of named columns with untyped cells.
package table

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Table is a rectangular data set. Column names are kept verbatim; Rows[i][j]
// is the cell of column j in row i, nil when missing.
type Table struct {
	Columns []string
	Rows    [][]any
}

// ColumnIndex returns the index of the first column whose name equals name
// case-insensitively, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}

// Column returns the cells of the named column (case-insensitive) and whether
// the column exists.
func (t *Table) Column(name string) ([]any, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}

	cells := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		if idx < len(row) {
			cells[i] = row[idx]
		}
	}
	return cells, true
}

// ToNumber coerces a cell to a number. Strings are trimmed and parsed; bools
// count as 1 and 0. Anything unparsable, missing or non-finite reports false.
func ToNumber(cell any) (float64, bool) {
	var f float64

	switch v := cell.(type) {
	case nil:
		return 0, false
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SumColumn sums the named column, counting cells that do not coerce to a
// number as zero. It reports false when the column does not exist.
func (t *Table) SumColumn(name string) (float64, bool) {
	cells, ok := t.Column(name)
	if !ok {
		return 0, false
	}

	var sum float64
	for _, cell := range cells {
		if v, ok := ToNumber(cell); ok {
			sum += v
		}
	}
	return sum, true
}
