package dedup

import (
	"fmt"
	"strings"
)

// MissingColumnsError reports requested key columns that the dataset lacks.
type MissingColumnsError struct {
	Missing   []string // requested names not found, in request order
	Available []string // every column of the dataset, in header order
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing key columns: %s (available columns: %s)",
		quoteList(e.Missing), quoteList(e.Available))
}

// ConfigurationError reports a keep policy outside the closed set.
// It signals a caller bug and is never produced by user input that went
// through ParsePolicy.
type ConfigurationError struct {
	Policy KeepPolicy
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid keep policy %d", uint8(e.Policy))
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = fmt.Sprintf("%q", n)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
