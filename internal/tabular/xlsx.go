package tabular

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/sheetdedup/internal/dedup"
)

// DefaultSheet is the sheet name used when writing workbooks.
const DefaultSheet = "Sheet1"

// dateNumFmt renders date cells in a layout InferValue reads back as a date.
var dateNumFmt = "yyyy-mm-dd"

// ReadXLSX parses the named sheet of an .xlsx/.xlsm workbook, or the first
// sheet when sheet is empty. Cells are read by stored value, not display text:
// numbers stay exact, date-formatted serials become dates and booleans
// become bools. String cells go through InferValue.
func ReadXLSX(r io.Reader, sheet string) (*dedup.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		return nil, &SheetNotFoundError{Sheet: sheet, Available: sheets}
	}

	records, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	cells := &sheetCells{f: f, sheet: sheet, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		cells.date1904 = *props.Date1904
	}

	return buildDataset(records, cells.value)
}

// sheetCells types raw worksheet values using each cell's type and number format.
type sheetCells struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool // style index -> has a date number format
}

func (c *sheetCells) value(row, col int, raw string) dedup.Value {
	if cleanCell(raw) == "" {
		return dedup.Null().WithRaw(raw)
	}
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return InferValue(raw)
	}
	typ, err := c.f.GetCellType(c.sheet, ref)
	if err != nil {
		return InferValue(raw)
	}

	switch typ {
	case excelize.CellTypeBool:
		return dedup.Bool(raw == "1" || strings.EqualFold(raw, "true"))

	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return dateTimeValue(t)
			}
		}

	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		d, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			break
		}
		if c.isDate(ref) {
			serial, _ := d.Float64()
			if t, err := excelize.ExcelDateToTime(serial, c.date1904); err == nil {
				return dateTimeValue(t)
			}
		}
		return dedup.Number(d)
	}

	return InferValue(raw)
}

// isDate reports whether the cell at ref carries a date number format.
func (c *sheetCells) isDate(ref string) bool {
	idx, err := c.f.GetCellStyle(c.sheet, ref)
	if err != nil {
		return false
	}
	if d, ok := c.dateStyles[idx]; ok {
		return d
	}

	d := false
	if style, err := c.f.GetStyle(idx); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			d = isDateFormat(*style.CustomNumFmt)
		} else {
			d = isBuiltinDateFormat(style.NumFmt)
		}
	}
	c.dateStyles[idx] = d
	return d
}

// isBuiltinDateFormat reports whether a built-in number format id shows a
// calendar date. Time-only formats (18-21, 45-47) are not dates.
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom format code shows a year or a day.
// Quoted literals, escaped characters and [bracketed] sections are ignored.
func isDateFormat(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			inQuote = r != '"'
		case inBracket:
			inBracket = r != ']'
		case r == '\\':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		default:
			b.WriteRune(r)
		}
	}
	return strings.ContainsAny(b.String(), "yd")
}

// dateTimeValue keeps whole days as dates; a time of day makes the value text
// so rows differing only in time stay distinct.
func dateTimeValue(t time.Time) dedup.Value {
	t = t.Round(time.Second)
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return dedup.Date(t)
	}
	return dedup.Text(t.Format("2006-01-02 15:04:05"))
}

// WriteXLSX writes ds as a single-sheet workbook with typed cells.
func WriteXLSX(w io.Writer, ds *dedup.Dataset, opts WriteOptions) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = DefaultSheet
	}
	if sheet != DefaultSheet {
		if err := f.SetSheetName(DefaultSheet, sheet); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}

	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateNumFmt})
	if err != nil {
		return fmt.Errorf("create date style: %w", err)
	}

	header := headerFor(ds, opts)
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range ds.Rows {
		offset := 1
		cells := make([]any, 0, len(row)+1)
		if opts.IncludeIndex {
			cells = append(cells, i)
			offset++
		}
		for _, v := range row {
			cells = append(cells, xlsxCell(v))
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}

		for j, v := range row {
			if v.Kind != dedup.KindDate {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(j+offset, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, ref, ref, dateStyle); err != nil {
				return fmt.Errorf("style row %d: %w", i, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// xlsxCell returns the value stored for v. Numbers that float64 cannot hold
// exactly, and numbers written with leading zeros, are stored as text.
func xlsxCell(v dedup.Value) any {
	if v.Kind != dedup.KindNumber {
		return v.Native()
	}
	f, _ := v.Num.Float64()
	if !decimal.NewFromFloat(f).Equal(v.Num) || hasLeadingZero(v.Raw) {
		return v.String()
	}
	return f
}

// hasLeadingZero reports whether a numeric string pads its integer part
// with zeros, as in "00123" or "-007.5".
func hasLeadingZero(s string) bool {
	s = strings.TrimLeft(cleanCell(s), "+-")
	return len(s) > 1 && s[0] == '0' && s[1] >= '0' && s[1] <= '9'
}
