package dedup

import (
	"errors"
	"fmt"
)

// ErrRowWidth is returned by NewDataset when a row does not match the header.
var ErrRowWidth = errors.New("row width does not match column count")

// Row is one record, positionally aligned with Dataset.Columns.
type Row []Value

// Dataset is an ordered sequence of rows sharing one column set.
//
// Columns may contain the same name more than once; see HeaderIndex.
// A Dataset is treated as immutable once built: the engine returns a new
// Dataset rather than editing its input.
type Dataset struct {
	Columns []string
	Rows    []Row
}

// NewDataset builds a Dataset, checking that every row is as wide as the header.
func NewDataset(columns []string, rows []Row) (*Dataset, error) {
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("row %d: %w (got %d, want %d)", i, ErrRowWidth, len(r), len(columns))
		}
	}
	return &Dataset{Columns: columns, Rows: rows}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Value returns the cell at row i for the named column, using the last
// occurrence of a duplicated name. ok is false for unknown columns.
func (d *Dataset) Value(i int, column string) (v Value, ok bool) {
	pos, ok := MakeHeaderIndex(d.Columns)[column]
	if !ok {
		return Value{}, false
	}
	return d.Rows[i][pos], true
}

// DuplicateColumns returns every column name that appears more than once,
// in order of first appearance.
func (d *Dataset) DuplicateColumns() []string {
	seen := make(map[string]int, len(d.Columns))
	var dups []string
	for _, c := range d.Columns {
		seen[c]++
		if seen[c] == 2 {
			dups = append(dups, c)
		}
	}
	return dups
}

// HeaderIndex maps column names to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Names match exactly. When a name repeats, the last occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		idx[h] = i
	}
	return idx
}
