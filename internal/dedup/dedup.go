package dedup

import (
	"fmt"
	"strings"
)

// Summary holds the row counts of one deduplication pass.
type Summary struct {
	InputRows      int     `json:"input_rows"`
	OutputRows     int     `json:"output_rows"`
	RemovedRows    int     `json:"removed_rows"`
	RemovedPercent float64 `json:"removed_percent"` // 0-100, 0 when InputRows is 0
}

// NewSummary derives removal statistics from input and output counts.
func NewSummary(input, output int) Summary {
	s := Summary{InputRows: input, OutputRows: output, RemovedRows: input - output}
	if input > 0 {
		s.RemovedPercent = float64(s.RemovedRows) / float64(input) * 100
	}
	return s
}

// WarningKind classifies a non-fatal data-quality finding.
type WarningKind string

const (
	// WarnDuplicateColumns: the dataset has repeated column names.
	WarnDuplicateColumns WarningKind = "duplicate_columns"
	// WarnDegenerateKey: no key columns were given, all rows form one group.
	WarnDegenerateKey WarningKind = "degenerate_key"
	// WarnEmptyResult: rows were present but none survived.
	WarnEmptyResult WarningKind = "empty_result"
)

// Warning is a data-quality finding reported alongside a normal result.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	Columns []string    `json:"columns,omitempty"`
}

// Result is the outcome of Run.
type Result struct {
	Dataset  *Dataset
	Summary  Summary
	Warnings []Warning
}

// HasWarning reports whether the result carries a warning of kind k.
func (r *Result) HasWarning(k WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == k {
			return true
		}
	}
	return false
}

// group tracks the members of one key group during a pass.
type group struct {
	first int
	last  int
	count int
}

// Run validates the policy and key columns, then deduplicates ds.
//
// It returns *ConfigurationError for an undefined policy and
// *MissingColumnsError when a key column is absent; in both cases the engine
// does not run. Data-quality findings are returned as Result.Warnings.
func Run(ds *Dataset, keyColumns []string, policy KeepPolicy) (*Result, error) {
	if !policy.Valid() {
		return nil, &ConfigurationError{Policy: policy}
	}
	if ds == nil {
		ds = &Dataset{}
	}
	if err := ValidateKeyColumns(ds.Columns, keyColumns); err != nil {
		return nil, err
	}

	var warnings []Warning
	if dups := ds.DuplicateColumns(); len(dups) > 0 {
		warnings = append(warnings, Warning{
			Kind:    WarnDuplicateColumns,
			Message: fmt.Sprintf("dataset has repeated column names %s; key values are taken from the last occurrence", quoteList(dups)),
			Columns: dups,
		})
	}
	if len(keyColumns) == 0 {
		warnings = append(warnings, Warning{
			Kind:    WarnDegenerateKey,
			Message: "no key columns given; every row shares the same empty key and the whole dataset is one group",
		})
	}

	out, summary := Deduplicate(ds, keyColumns, policy)

	if summary.InputRows > 0 && summary.OutputRows == 0 {
		warnings = append(warnings, Warning{
			Kind:    WarnEmptyResult,
			Message: fmt.Sprintf("all %d rows were removed", summary.InputRows),
		})
	}

	return &Result{Dataset: out, Summary: summary, Warnings: warnings}, nil
}

// Deduplicate keeps rows of ds according to policy, grouping by keyColumns.
//
// keyColumns must already have passed ValidateKeyColumns against ds.Columns.
// The returned Dataset is new; ds is not modified. Survivors keep their original
// relative order. Deduplicate panics with *ConfigurationError if policy is not
// one of KeepFirst, KeepLast or KeepNone.
func Deduplicate(ds *Dataset, keyColumns []string, policy KeepPolicy) (*Dataset, Summary) {
	if !policy.Valid() {
		panic(&ConfigurationError{Policy: policy})
	}

	positions := keyPositions(ds.Columns, keyColumns)
	keys := make([]string, len(ds.Rows))
	groups := make(map[string]*group)

	for i, row := range ds.Rows {
		k := rowKey(row, positions)
		keys[i] = k
		g, ok := groups[k]
		if !ok {
			g = &group{first: i}
			groups[k] = g
		}
		g.last = i
		g.count++
	}

	// At most one survivor per group.
	kept := make([]Row, 0, len(groups))
	for i, row := range ds.Rows {
		g := groups[keys[i]]
		var keep bool
		switch policy {
		case KeepFirst:
			keep = i == g.first
		case KeepLast:
			keep = i == g.last
		case KeepNone:
			keep = g.count == 1
		}
		if keep {
			kept = append(kept, append(Row(nil), row...))
		}
	}

	out := &Dataset{
		Columns: append([]string(nil), ds.Columns...),
		Rows:    kept,
	}
	return out, NewSummary(len(ds.Rows), len(kept))
}

// Group is a set of rows sharing one key.
type Group struct {
	Key       []Value `json:"-"`
	Positions []int   `json:"positions"` // original row positions, ascending
}

// KeyStrings renders the group key for display.
func (g Group) KeyStrings() []string {
	out := make([]string, len(g.Key))
	for i, v := range g.Key {
		out[i] = v.String()
	}
	return out
}

// FindGroups returns every key group with more than one member, ordered by
// first appearance. keyColumns must be valid for ds.
func FindGroups(ds *Dataset, keyColumns []string) []Group {
	positions := keyPositions(ds.Columns, keyColumns)
	index := make(map[string]int)
	var all []Group

	for i, row := range ds.Rows {
		k := rowKey(row, positions)
		gi, ok := index[k]
		if !ok {
			key := make([]Value, len(positions))
			for j, p := range positions {
				key[j] = row[p]
			}
			gi = len(all)
			index[k] = gi
			all = append(all, Group{Key: key})
		}
		all[gi].Positions = append(all[gi].Positions, i)
	}

	dups := all[:0]
	for _, g := range all {
		if len(g.Positions) > 1 {
			dups = append(dups, g)
		}
	}
	return dups
}

// keyPositions resolves key column names to row positions.
// Repeated header names resolve to their last occurrence.
func keyPositions(columns, keyColumns []string) []int {
	idx := MakeHeaderIndex(columns)
	positions := make([]int, len(keyColumns))
	for i, c := range keyColumns {
		positions[i] = idx[c]
	}
	return positions
}

// rowKey encodes the key tuple of row. An empty position list yields "".
func rowKey(row Row, positions []int) string {
	if len(positions) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range positions {
		row[p].appendKey(&b)
	}
	return b.String()
}
