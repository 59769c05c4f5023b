// Package frame holds string-typed tables with an explicit missing-cell
// sentinel, and the lossy parsers used to coerce their cells.
package frame

import (
	"slices"
	"strings"
)

// Cell is a single table value. Valid is false for missing cells.
type Cell struct {
	Value string
	Valid bool
}

// Missing is the sentinel for an absent value.
var Missing = Cell{}

// Str builds a present cell.
func Str(v string) Cell { return Cell{Value: v, Valid: true} }

// Frame is a rectangular table of cells with named columns.
type Frame struct {
	Columns []string
	Rows    [][]Cell
	// Source holds each row's position in the input passed to New.
	Source []int
	index  map[string]int
}

// New builds a frame from a header and raw string rows. Blank cells
// (after trimming) become Missing. Short rows are padded with Missing and
// long rows are truncated to the header width.
func New(header []string, rows [][]string) *Frame {
	f := &Frame{Columns: slices.Clone(header)}
	f.Rows = make([][]Cell, 0, len(rows))
	f.Source = make([]int, 0, len(rows))
	for n, raw := range rows {
		row := make([]Cell, len(header))
		for i := range row {
			if i >= len(raw) {
				continue
			}
			if v := strings.TrimSpace(raw[i]); v != "" {
				row[i] = Str(v)
			}
		}
		f.Rows = append(f.Rows, row)
		f.Source = append(f.Source, n)
	}
	f.reindex()
	return f
}

// Empty returns a frame with no columns and no rows.
func Empty() *Frame {
	return New(nil, nil)
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.Columns))
	for i, c := range f.Columns {
		if _, dup := f.index[c]; !dup {
			f.index[c] = i
		}
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.Rows) }

// IsEmpty reports whether the frame has no rows.
func (f *Frame) IsEmpty() bool { return len(f.Rows) == 0 }

// SourceRow returns the input position of row i, or i itself when the
// frame was assembled without positions.
func (f *Frame) SourceRow(i int) int {
	if len(f.Source) != len(f.Rows) {
		return i
	}
	return f.Source[i]
}

// Has reports whether the column exists.
func (f *Frame) Has(col string) bool {
	_, ok := f.index[col]
	return ok
}

// Get returns the cell at row i, column col. Unknown columns read as Missing.
func (f *Frame) Get(i int, col string) Cell {
	j, ok := f.index[col]
	if !ok {
		return Missing
	}
	return f.Rows[i][j]
}

// Column returns all cells of col, or nil if the column does not exist.
func (f *Frame) Column(col string) []Cell {
	j, ok := f.index[col]
	if !ok {
		return nil
	}
	out := make([]Cell, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = row[j]
	}
	return out
}

// MissingColumns returns the names of cols that are not present.
func (f *Frame) MissingColumns(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if !f.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// DropColumns removes the named columns. Unknown names are ignored.
func (f *Frame) DropColumns(cols ...string) {
	drop := make(map[int]bool, len(cols))
	for _, c := range cols {
		if j, ok := f.index[c]; ok {
			drop[j] = true
		}
	}
	if len(drop) == 0 {
		return
	}

	keep := make([]int, 0, len(f.Columns)-len(drop))
	for j := range f.Columns {
		if !drop[j] {
			keep = append(keep, j)
		}
	}

	cols2 := make([]string, len(keep))
	for k, j := range keep {
		cols2[k] = f.Columns[j]
	}
	for i, row := range f.Rows {
		r := make([]Cell, len(keep))
		for k, j := range keep {
			r[k] = row[j]
		}
		f.Rows[i] = r
	}
	f.Columns = cols2
	f.reindex()
}

// DropEmptyRows removes rows in which every cell is missing and returns the
// number removed.
func (f *Frame) DropEmptyRows() int {
	before := f.Len()
	f.Filter(func(i int) bool {
		return slices.ContainsFunc(f.Rows[i], func(c Cell) bool { return c.Valid })
	})
	return before - f.Len()
}

// Filter keeps only rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) {
	out := make([][]Cell, 0, len(f.Rows))
	src := make([]int, 0, len(f.Rows))
	for i, row := range f.Rows {
		if keep(i) {
			out = append(out, row)
			src = append(src, f.SourceRow(i))
		}
	}
	f.Rows = out
	f.Source = src
}

// AllMissing reports whether every cell of col is missing.
func (f *Frame) AllMissing(col string) bool {
	j, ok := f.index[col]
	if !ok {
		return true
	}
	for _, row := range f.Rows {
		if row[j].Valid {
			return false
		}
	}
	return true
}
