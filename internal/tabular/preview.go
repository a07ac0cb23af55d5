package tabular

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/sheetdedup/internal/dedup"
)

// maxPreviewCell caps the width of a single preview cell.
const maxPreviewCell = 24

// Preview writes the first n rows of ds as an aligned table with a leading
// position column. A trailing line notes how many rows were omitted.
func Preview(w io.Writer, ds *dedup.Dataset, n int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "\t%s\n", strings.Join(truncateAll(ds.Columns), "\t"))

	shown := ds.Len()
	if n >= 0 && n < shown {
		shown = n
	}
	for i := 0; i < shown; i++ {
		cells := make([]string, len(ds.Rows[i]))
		for j, v := range ds.Rows[i] {
			if v.IsNull() {
				cells[j] = "NaN"
				continue
			}
			cells[j] = truncate(v.String())
		}
		fmt.Fprintf(tw, "%d\t%s\n", i, strings.Join(cells, "\t"))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	switch rest := ds.Len() - shown; {
	case ds.Len() == 0:
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	case rest > 0:
		_, err := fmt.Fprintf(w, "... %d more rows\n", rest)
		return err
	}
	return nil
}

func truncateAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = truncate(s)
	}
	return out
}

func truncate(s string) string {
	s = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
	r := []rune(s)
	if len(r) <= maxPreviewCell {
		return s
	}
	return string(r[:maxPreviewCell-3]) + "..."
}
