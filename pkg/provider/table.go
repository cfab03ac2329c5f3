package provider

import (
	"strings"
)

// Table is a loose tabular payload as returned by the market-data provider.
// The shape mirrors a split-oriented frame: column names, an optional named
// index, and row-major data with untyped cells. Nothing about column naming,
// casing, or placement is contractually stable; consumers must probe.
type Table struct {
	Columns   []string `json:"columns"`
	IndexName string   `json:"index_name,omitempty"`
	Index     []any    `json:"index,omitempty"`
	Data      [][]any  `json:"data"`
}

// Empty reports whether the table carries no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Data) == 0
}

// ColumnIndex returns the position of the first column whose lowercased,
// trimmed name matches one of the candidates, or -1 when none match.
// Candidates are checked in order, so preferred aliases go first.
func (t *Table) ColumnIndex(candidates ...string) int {
	if t == nil {
		return -1
	}
	for _, cand := range candidates {
		cand = strings.ToLower(strings.TrimSpace(cand))
		for i, col := range t.Columns {
			if strings.ToLower(strings.TrimSpace(col)) == cand {
				return i
			}
		}
	}
	return -1
}

// HasIndex reports whether the table carries a usable row index.
func (t *Table) HasIndex() bool {
	return t != nil && len(t.Index) == len(t.Data) && len(t.Data) > 0
}

// ResetIndex returns a copy of the table with the index materialized as the
// first column. The column is named after IndexName, or "index" when the
// provider did not name it. Tables without a usable index are returned as-is.
func (t *Table) ResetIndex() *Table {
	if !t.HasIndex() {
		return t
	}

	name := t.IndexName
	if name == "" {
		name = "index"
	}

	out := &Table{
		Columns: append([]string{name}, t.Columns...),
		Data:    make([][]any, len(t.Data)),
	}
	for i, row := range t.Data {
		out.Data[i] = append([]any{t.Index[i]}, row...)
	}
	return out
}

// Cell returns the value at (row, col), or nil when out of range.
func (t *Table) Cell(row, col int) any {
	if t == nil || row < 0 || row >= len(t.Data) {
		return nil
	}
	if col < 0 || col >= len(t.Data[row]) {
		return nil
	}
	return t.Data[row][col]
}
