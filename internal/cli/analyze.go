package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetdedup/internal/config"
	"github.com/JonMunkholm/sheetdedup/internal/dedup"
	"github.com/JonMunkholm/sheetdedup/internal/tabular"
)

func newAnalyzeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show duplicate groups without writing a file",
		Long: `Group the input by its key columns and list every group with more than
one row, along with what the keep policy would remove. Nothing is written.`,
		Example: `  sheetdedup analyze -i raw.xlsx
  sheetdedup analyze -i raw.csv -c Date -k none --max-groups 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer o.close()
			return runAnalyze(cmd.OutOrStdout(), o.cfg, o.input, o.maxGroups)
		},
	}

	cmd.Flags().StringVarP(&o.input, "input", "i", "", "Input file (.csv, .xlsx, .xlsm)")
	addKeyFlags(cmd, o)
	cmd.Flags().IntVar(&o.maxGroups, "max-groups", 20, "Maximum groups to list (0 lists none)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runAnalyze(w io.Writer, cfg *config.Config, input string, maxGroups int) error {
	if maxGroups < 0 {
		return fmt.Errorf("invalid configuration: --max-groups must be non-negative")
	}
	policy, err := cfg.Dedup.Policy()
	if err != nil {
		return err
	}

	ds, err := tabular.ReadFile(input, tabular.ReadOptions{Sheet: cfg.Dedup.Sheet})
	if err != nil {
		return err
	}

	keys := keyColumns(&cfg.Dedup, ds)
	res, err := dedup.Run(ds, keys, policy)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "%s %s\n", bold("File:"), input)
	fmt.Fprintf(w, "%s %s\n", bold("Key columns:"), strings.Join(keys, ", "))
	fmt.Fprintf(w, "%s %s\n", bold("Keep policy:"), policy)
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "%s %s\n", yellow("Warning:"), warn.Message)
	}

	groups := dedup.FindGroups(ds, keys)
	s := res.Summary
	fmt.Fprintf(w, "\nRows: %d  Duplicate groups: %d  Would remove: %d (%.2f%%)\n",
		s.InputRows, len(groups), s.RemovedRows, s.RemovedPercent)

	shown := min(len(groups), maxGroups)
	for _, g := range groups[:shown] {
		fmt.Fprintf(w, "  [%s]  rows %s\n", strings.Join(g.KeyStrings(), " | "), joinInts(g.Positions))
	}
	if rest := len(groups) - shown; rest > 0 {
		fmt.Fprintf(w, "  ... %d more groups\n", rest)
	}
	return nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}
