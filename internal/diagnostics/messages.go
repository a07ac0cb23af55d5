// Package diagnostics turns technical errors into coded, user-friendly messages.
//
// # Error Codes Reference
//
// When a run fails, the CLI and the HTTP API print a code users can quote
// to support staff. Codes are grouped by category.
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Missing key columns: one or more requested key columns do not exist
//	         Action: lists the columns the file does have
//	         Matches: *dedup.MissingColumnsError
//
// # Configuration Errors (CFG001-CFG099)
//
//	CFG001 - Invalid keep policy value reached the engine
//	         Matches: *dedup.ConfigurationError
//
//	CFG002 - Unknown keep policy name
//	         Action: Use one of first, last or none
//	         Matches: dedup.ErrUnknownPolicy
//
//	CFG003 - Input and output are the same file
//	         Patterns: "same as input"
//
//	CFG004 - Invalid configuration value
//	         Patterns: "invalid configuration"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File not found or not a regular file
//	          Matches: os.ErrNotExist, tabular.ErrNotAFile
//
//	FILE002 - Unsupported format (.xls, unknown extensions)
//	          Matches: tabular.ErrUnsupportedFormat
//
//	FILE003 - Malformed CSV or workbook
//	          Matches: *tabular.RaggedRowError; Patterns: "invalid csv", "open workbook"
//
//	FILE004 - Empty file: no header row
//	          Matches: tabular.ErrEmptyFile
//
//	FILE005 - Worksheet not found
//	          Matches: *tabular.SheetNotFoundError
//
//	FILE006 - Upload too large
//	          Matches: *http.MaxBytesError; Patterns: "file too large"
//
//	FILE007 - No file in the request
//	          Patterns: "no file provided"
//
// # Job Errors (JOB001-JOB099)
//
//	JOB001 - Too many concurrent jobs
//	         Patterns: "too many jobs"
//
//	JOB002 - Run cancelled (Ctrl+C, client disconnect)
//	         Matches: context.Canceled
//
//	JOB003 - Run timed out
//	         Matches: context.DeadlineExceeded
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Unable to connect to the database
//	        Patterns: "database connect", "connection refused"
//
//	DB002 - Could not prepare the destination table
//	        Patterns: "create table", "invalid table name"
//
//	DB003 - Bulk load failed
//	        Patterns: "copy rows"
//
// # Default Error (ERR000)
//
//	ERR000 - An unexpected error occurred. Check the logs for the technical error.
//
// # Matching
//
// Typed errors are checked first with errors.Is / errors.As, so wrapping
// with fmt.Errorf("...: %w") keeps the code. Remaining errors are matched
// against case-insensitive substrings; the first match wins.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/JonMunkholm/sheetdedup/internal/dedup"
	"github.com/JonMunkholm/sheetdedup/internal/tabular"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// typedMatcher recognizes an error by identity or type and builds its message.
type typedMatcher func(err error) (UserMessage, bool)

var typedMatchers = []typedMatcher{
	func(err error) (UserMessage, bool) {
		var mc *dedup.MissingColumnsError
		if !errors.As(err, &mc) {
			return UserMessage{}, false
		}
		return UserMessage{
			Message: "Key columns not found: " + strings.Join(mc.Missing, ", "),
			Action:  "Available columns: " + strings.Join(mc.Available, ", "),
			Code:    "COL001",
		}, true
	},
	func(err error) (UserMessage, bool) {
		var ce *dedup.ConfigurationError
		if !errors.As(err, &ce) {
			return UserMessage{}, false
		}
		return UserMessage{
			Message: "Invalid keep policy",
			Action:  "Use one of " + strings.Join(dedup.PolicyNames, ", "),
			Code:    "CFG001",
		}, true
	},
	isMatcher(dedup.ErrUnknownPolicy, UserMessage{
		Message: "Unknown keep policy",
		Action:  "Use one of " + strings.Join(dedup.PolicyNames, ", "),
		Code:    "CFG002",
	}),
	isMatcher(os.ErrNotExist, UserMessage{
		Message: "File not found",
		Action:  "Check the input path",
		Code:    "FILE001",
	}),
	isMatcher(tabular.ErrNotAFile, UserMessage{
		Message: "Path is not a regular file",
		Action:  "Point the input at a .csv or .xlsx file, not a directory",
		Code:    "FILE001",
	}),
	isMatcher(tabular.ErrUnsupportedFormat, UserMessage{
		Message: "Unsupported file format",
		Action:  "Use one of " + strings.Join(tabular.SupportedExtensions, ", ") + " (re-save .xls files as .xlsx)",
		Code:    "FILE002",
	}),
	func(err error) (UserMessage, bool) {
		var re *tabular.RaggedRowError
		if !errors.As(err, &re) {
			return UserMessage{}, false
		}
		return UserMessage{
			Message: fmt.Sprintf("Line %d has more fields than the header", re.Line),
			Action:  "Ensure every row has the same number of columns as the header",
			Code:    "FILE003",
		}, true
	},
	isMatcher(tabular.ErrEmptyFile, UserMessage{
		Message: "The file is empty",
		Action:  "Provide a file with a header row",
		Code:    "FILE004",
	}),
	func(err error) (UserMessage, bool) {
		var se *tabular.SheetNotFoundError
		if !errors.As(err, &se) {
			return UserMessage{}, false
		}
		return UserMessage{
			Message: fmt.Sprintf("Worksheet %q not found", se.Sheet),
			Action:  "Available sheets: " + strings.Join(se.Available, ", "),
			Code:    "FILE005",
		}, true
	},
	func(err error) (UserMessage, bool) {
		var mb *http.MaxBytesError
		if !errors.As(err, &mb) {
			return UserMessage{}, false
		}
		return fileTooLarge, true
	},
	isMatcher(context.Canceled, UserMessage{
		Message: "The run was cancelled",
		Action:  "Start the run again when ready",
		Code:    "JOB002",
	}),
	isMatcher(context.DeadlineExceeded, UserMessage{
		Message: "The run timed out",
		Action:  "Try a smaller file or raise the timeout",
		Code:    "JOB003",
	}),
}

func isMatcher(target error, msg UserMessage) typedMatcher {
	return func(err error) (UserMessage, bool) {
		return msg, errors.Is(err, target)
	}
}

var fileTooLarge = UserMessage{
	Message: "File exceeds the maximum upload size",
	Action:  "Split the file or run the CLI locally",
	Code:    "FILE006",
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Order matters: more specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "same as input",
		msg: UserMessage{
			Message: "Output path is the same as the input path",
			Action:  "Choose a different output file",
			Code:    "CFG003",
		},
	},
	{
		pattern: "invalid configuration",
		msg: UserMessage{
			Message: "Configuration is invalid",
			Action:  "Check flags, environment variables and the config file",
			Code:    "CFG004",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with consistent columns",
			Code:    "FILE003",
		},
	},
	{
		pattern: "open workbook",
		msg: UserMessage{
			Message: "File is not a valid workbook",
			Action:  "Open and re-save the file in Excel as .xlsx",
			Code:    "FILE003",
		},
	},
	{pattern: "file too large", msg: fileTooLarge},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Attach a .csv or .xlsx file in the \"file\" form field",
			Code:    "FILE007",
		},
	},
	{
		pattern: "too many jobs",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "JOB001",
		},
	},
	{
		pattern: "database connect",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check DATABASE_URL and that the server is reachable",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB001",
		},
	},
	{
		pattern: "invalid table name",
		msg: UserMessage{
			Message: "Destination table name is invalid",
			Action:  "Use a plain or schema-qualified table name",
			Code:    "DB002",
		},
	},
	{
		pattern: "create table",
		msg: UserMessage{
			Message: "Could not prepare the destination table",
			Action:  "Check that the database user may create tables",
			Code:    "DB002",
		},
	},
	{
		pattern: "copy rows",
		msg: UserMessage{
			Message: "Loading rows into the database failed",
			Action:  "Check the table's columns match the file header",
			Code:    "DB003",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error yields the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, match := range typedMatchers {
		if msg, ok := match(err); ok {
			return msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// UserError pairs a technical error with its user-friendly message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// Display returns the message in FormatUserError form.
func (e *UserError) Display() string {
	return FormatUserError(e.Technical)
}

// Specific reports whether the error mapped to a specific code rather than ERR000.
func (e *UserError) Specific() bool {
	return e.User.Code != defaultMessage.Code
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
