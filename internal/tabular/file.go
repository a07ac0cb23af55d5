// Package tabular reads and writes spreadsheet files as dedup datasets.
//
// Supported formats are CSV (.csv) and Office Open XML workbooks
// (.xlsx, .xlsm). Legacy binary .xls files are rejected.
package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/sheetdedup/internal/dedup"
)

var (
	// ErrEmptyFile is returned when a file holds no header row.
	ErrEmptyFile = errors.New("empty file: no header row found")

	// ErrUnsupportedFormat is returned for file extensions we cannot read or write.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNotAFile is returned when a path names a directory or other non-regular file.
	ErrNotAFile = errors.New("path is not a regular file")
)

// SupportedExtensions lists the extensions accepted by DetectFormat.
var SupportedExtensions = []string{".csv", ".xlsx", ".xlsm"}

// RaggedRowError reports a record with more non-empty cells than the header.
type RaggedRowError struct {
	Line int
	Got  int
	Want int
}

func (e *RaggedRowError) Error() string {
	return fmt.Sprintf("invalid csv: line %d has %d fields, header has %d", e.Line, e.Got, e.Want)
}

// SheetNotFoundError reports a requested worksheet that does not exist.
type SheetNotFoundError struct {
	Sheet     string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet not found: %q (available sheets: %s)", e.Sheet, strings.Join(e.Available, ", "))
}

// Format is a spreadsheet file format.
type Format int

const (
	FormatCSV Format = iota + 1
	FormatXLSX
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	}
	return "unknown"
}

// ContentType returns the MIME type used when serving files of this format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ParseFormat converts a format name ("csv", "xlsx") into a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "xlsm":
		return FormatXLSX, nil
	}
	return 0, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, name, strings.Join(SupportedExtensions, ", "))
}

// DetectFormat picks a Format from a file name's extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	if ext == "" {
		ext = "(none)"
	}
	return 0, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions, ", "))
}

// ReadOptions controls dataset loading.
type ReadOptions struct {
	Sheet string // worksheet name for workbooks; first sheet when empty
}

// WriteOptions controls dataset persistence.
type WriteOptions struct {
	IncludeIndex bool   // prepend a blank-headed 0..n-1 position column
	Sheet        string // worksheet name for workbooks; DefaultSheet when empty
}

// Read parses r in the given format.
func Read(r io.Reader, f Format, opts ReadOptions) (*dedup.Dataset, error) {
	switch f {
	case FormatCSV:
		return ReadCSV(r)
	case FormatXLSX:
		return ReadXLSX(r, opts.Sheet)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}

// Write encodes ds to w in the given format.
func Write(w io.Writer, f Format, ds *dedup.Dataset, opts WriteOptions) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, ds, opts)
	case FormatXLSX:
		return WriteXLSX(w, ds, opts)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}

// ReadFile loads the dataset stored at path, choosing the format by extension.
func ReadFile(path string, opts ReadOptions) (*dedup.Dataset, error) {
	f, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	ds, err := Read(file, f, opts)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return ds, nil
}

// WriteFile stores ds at path, creating parent directories as needed.
// It returns the size of the written file in bytes.
func WriteFile(path string, ds *dedup.Dataset, opts WriteOptions) (int64, error) {
	f, err := DetectFormat(path)
	if err != nil {
		return 0, err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output: %w", err)
	}

	if err := Write(file, f, ds, opts); err != nil {
		file.Close()
		return 0, err
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("close output: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat output: %w", err)
	}
	return info.Size(), nil
}
