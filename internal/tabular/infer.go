package tabular

// infer.go turns raw spreadsheet cell text into typed dedup values.
//
// CSV cells and XLSX string cells arrive as text. Inference order:
//   - blank (after trimming) -> null
//   - Excel formula wrapper ="..." is unwrapped and kept as text
//   - true/false (any case) -> bool
//   - plain decimal or scientific notation -> number
//   - known date layouts -> date
//   - anything else -> text (trimmed for comparison)
//
// The raw cell text is always kept on the value so CSV output reproduces the
// input byte for byte.

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/sheetdedup/internal/dedup"
)

// numericRegex matches integers, decimals and scientific notation.
// Currency symbols and thousands separators are not accepted:
// "$1,000" stays text.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years more than this many years in the future are moved to the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
	}
)

// InferValue converts one raw cell into a typed value.
func InferValue(raw string) dedup.Value {
	s := cleanCell(raw)
	if s == "" {
		return dedup.Null().WithRaw(raw)
	}
	if isFormulaText(raw) {
		return dedup.Text(s).WithRaw(raw)
	}

	switch strings.ToLower(s) {
	case "true":
		return dedup.Bool(true).WithRaw(raw)
	case "false":
		return dedup.Bool(false).WithRaw(raw)
	}

	if numericRegex.MatchString(s) {
		if d, err := decimal.NewFromString(s); err == nil {
			return dedup.Number(d).WithRaw(raw)
		}
	}

	if t, ok := parseDate(s); ok {
		return dedup.Date(t).WithRaw(raw)
	}

	return dedup.Text(s).WithRaw(raw)
}

// InferRow converts a record into a row of exactly width cells.
// Short records are padded with nulls.
func InferRow(record []string, width int) dedup.Row {
	row := make(dedup.Row, width)
	for i := 0; i < width; i++ {
		if i < len(record) {
			row[i] = InferValue(record[i])
		}
	}
	return row
}

// parseDate tries unambiguous 4-digit-year layouts first, then 2-digit years
// with the pivot adjustment.
func parseDate(s string) (time.Time, bool) {
	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}
	return time.Time{}, false
}

// isFormulaText reports whether s is an Excel ="..." text formula, which
// exports use to keep leading zeros.
func isFormulaText(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) >= 3 && strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"")
}

// cleanCell trims whitespace and unwraps Excel formula text (="value").
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if isFormulaText(s) {
		return s[2 : len(s)-1]
	}
	return s
}

// isEmptyRecord reports whether every cell is blank.
func isEmptyRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
