package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/sheetdedup/internal/dedup"
	"github.com/JonMunkholm/sheetdedup/internal/tabular"
)

func TestMapError(t *testing.T) {
	_, policyErr := dedup.ParsePolicy("middle")

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error returns empty", nil, ""},
		{"missing columns", &dedup.MissingColumnsError{Missing: []string{"Z"}, Available: []string{"A"}}, "COL001"},
		{"wrapped missing columns", fmt.Errorf("dedup: %w", &dedup.MissingColumnsError{Missing: []string{"Z"}}), "COL001"},
		{"configuration error", &dedup.ConfigurationError{Policy: 9}, "CFG001"},
		{"unknown policy", policyErr, "CFG002"},
		{"same file", errors.New("output path is the same as input"), "CFG003"},
		{"file not found", fmt.Errorf("file not found: x.csv: %w", os.ErrNotExist), "FILE001"},
		{"directory", fmt.Errorf("%w: /tmp", tabular.ErrNotAFile), "FILE001"},
		{"unsupported format", fmt.Errorf("%w: .xls", tabular.ErrUnsupportedFormat), "FILE002"},
		{"ragged row", &tabular.RaggedRowError{Line: 3, Got: 4, Want: 3}, "FILE003"},
		{"csv parse error", errors.New("read a.csv: invalid csv: bare quote"), "FILE003"},
		{"empty file", fmt.Errorf("read a.csv: %w", tabular.ErrEmptyFile), "FILE004"},
		{"sheet not found", &tabular.SheetNotFoundError{Sheet: "X", Available: []string{"Sheet1"}}, "FILE005"},
		{"max bytes", &http.MaxBytesError{Limit: 10}, "FILE006"},
		{"no file", errors.New("no file provided"), "FILE007"},
		{"busy", errors.New("too many jobs in progress"), "JOB001"},
		{"cancelled", fmt.Errorf("run: %w", context.Canceled), "JOB002"},
		{"deadline", context.DeadlineExceeded, "JOB003"},
		{"db connect", errors.New("database connect: dial tcp: connection refused"), "DB001"},
		{"create table", errors.New("create table \"t\": permission denied"), "DB002"},
		{"copy", errors.New("copy rows: column mismatch"), "DB003"},
		{"case insensitive", errors.New("INVALID CSV data"), "FILE003"},
		{"unknown error returns default", errors.New("some random internal error"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, MapError(tt.err).Code)
		})
	}
}

func TestMapError_MissingColumnsListsAvailable(t *testing.T) {
	err := dedup.ValidateKeyColumns([]string{"Date", "Machine"}, []string{"Date", "Z", "Y"})

	msg := MapError(err)
	assert.Equal(t, "COL001", msg.Code)
	assert.Equal(t, "Key columns not found: Z, Y", msg.Message)
	assert.Equal(t, "Available columns: Date, Machine", msg.Action)
}

func TestFormatUserError(t *testing.T) {
	err := &tabular.SheetNotFoundError{Sheet: "Data", Available: []string{"Sheet1", "Sheet2"}}

	assert.Equal(t,
		`Worksheet "Data" not found (Code: FILE005). Available sheets: Sheet1, Sheet2`,
		FormatUserError(err))
	assert.Empty(t, FormatUserError(nil))
}

func TestUserError_Specific(t *testing.T) {
	assert.True(t, NewUserError(tabular.ErrEmptyFile).Specific())
	assert.False(t, NewUserError(errors.New("random internal error xyz")).Specific())
}

func TestNewUserError(t *testing.T) {
	assert.Nil(t, NewUserError(nil))

	techErr := fmt.Errorf("read: %w", tabular.ErrEmptyFile)
	userErr := NewUserError(techErr)

	assert.Equal(t, "The file is empty", userErr.Error())
	assert.Equal(t, "FILE004", userErr.User.Code)
	assert.ErrorIs(t, userErr, tabular.ErrEmptyFile)
	assert.Equal(t, FormatUserError(techErr), userErr.Display())
	assert.Contains(t, userErr.Display(), "(Code: FILE004)")
}
