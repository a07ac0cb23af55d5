package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/sheetdedup/internal/dedup"
)

// ReadCSV parses CSV data into a Dataset. The first non-empty record is the
// header; blank records are skipped; short records are padded with nulls.
func ReadCSV(r io.Reader) (*dedup.Dataset, error) {
	cr := csv.NewReader(NewSanitizingReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		records = append(records, rec)
	}

	return buildDataset(records, inferCell)
}

// WriteCSV writes ds as CSV using each cell's raw text.
func WriteCSV(w io.Writer, ds *dedup.Dataset, opts WriteOptions) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(headerFor(ds, opts)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for i, row := range ds.Rows {
		rec := make([]string, 0, len(row)+1)
		if opts.IncludeIndex {
			rec = append(rec, fmt.Sprint(i))
		}
		for _, v := range row {
			rec = append(rec, v.String())
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// cellFunc converts the raw text at records[row][col] into a value.
type cellFunc func(row, col int, raw string) dedup.Value

func inferCell(_, _ int, raw string) dedup.Value {
	return InferValue(raw)
}

// buildDataset turns parsed records into a Dataset, converting cells with cell.
func buildDataset(records [][]string, cell cellFunc) (*dedup.Dataset, error) {
	start := 0
	for start < len(records) && isEmptyRecord(records[start]) {
		start++
	}
	if start == len(records) {
		return nil, ErrEmptyFile
	}

	header := normalizeHeader(records[start])
	rows := make([]dedup.Row, 0, len(records)-start-1)

	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if isEmptyRecord(rec) {
			continue
		}
		if len(rec) > len(header) && !isEmptyRecord(rec[len(header):]) {
			return nil, &RaggedRowError{Line: i + 1, Got: len(rec), Want: len(header)}
		}

		row := make(dedup.Row, len(header))
		for j := 0; j < len(header) && j < len(rec); j++ {
			row[j] = cell(i, j, rec[j])
		}
		rows = append(rows, row)
	}

	return dedup.NewDataset(header, rows)
}

// normalizeHeader names blank header cells "Unnamed: N" (zero-based position).
func normalizeHeader(rec []string) []string {
	header := make([]string, len(rec))
	for i, h := range rec {
		if cleanCell(h) == "" {
			header[i] = fmt.Sprintf("Unnamed: %d", i)
			continue
		}
		header[i] = h
	}
	return header
}

// headerFor returns the output header, with a blank index column if requested.
func headerFor(ds *dedup.Dataset, opts WriteOptions) []string {
	if !opts.IncludeIndex {
		return ds.Columns
	}
	return append([]string{""}, ds.Columns...)
}
