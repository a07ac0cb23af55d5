package cli

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetdedup/internal/config"
	"github.com/JonMunkholm/sheetdedup/internal/tabular"
)

func newColumnsCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "columns FILE",
		Short: "List the columns of a file",
		Long:  "List the column names of a file and mark the configured key columns.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer o.close()
			return runColumns(cmd.OutOrStdout(), o.cfg, args[0])
		},
	}

	cmd.Flags().StringVar(&o.sheet, "sheet", "", "Worksheet to read (default first sheet)")
	return cmd
}

func runColumns(w io.Writer, cfg *config.Config, path string) error {
	ds, err := tabular.ReadFile(path, tabular.ReadOptions{Sheet: cfg.Dedup.Sheet})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tCOLUMN\tKEY")
	for i, c := range ds.Columns {
		key := ""
		if cfg.Dedup.AllColumns || slices.Contains(cfg.Dedup.Columns, c) {
			key = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, c, key)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%d columns, %d rows\n", len(ds.Columns), ds.Len())
	return err
}
