package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetdedup/internal/config"
	"github.com/JonMunkholm/sheetdedup/internal/dedup"
	"github.com/JonMunkholm/sheetdedup/internal/logging"
	"github.com/JonMunkholm/sheetdedup/internal/pgsink"
	"github.com/JonMunkholm/sheetdedup/internal/tabular"
	"github.com/JonMunkholm/sheetdedup/internal/web"
)

// sinkOpener connects the database sink. Replaced in tests.
var sinkOpener = openSink

// runDedup reads input, removes duplicate rows and writes the result to output.
func runDedup(ctx context.Context, out io.Writer, cfg *config.Config, input, output string) error {
	policy, err := cfg.Dedup.Policy()
	if err != nil {
		return err
	}
	if err := checkPaths(input, output); err != nil {
		return err
	}

	runID := uuid.New()
	ctx = logging.WithRunID(ctx, runID.String())
	logger := logging.FromContext(ctx)

	logger.Info("=== sheetdedup started ===", "version", version)
	logger.Info("input file", "path", input)
	logger.Info("output file", "path", output)
	logger.Info("keep policy", "keep", policy.String())

	ds, err := tabular.ReadFile(input, tabular.ReadOptions{Sheet: cfg.Dedup.Sheet})
	if err != nil {
		logger.Error("load failed", "error", err)
		return err
	}
	logger.Info("loaded input", "rows", ds.Len(), "columns", len(ds.Columns))

	keys := keyColumns(&cfg.Dedup, ds)
	logger.Info("key columns", "columns", strings.Join(keys, ", "))

	if cfg.Output.Preview {
		if err := printPreview(out, "Input preview", ds, cfg.Output.PreviewRows); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := dedup.Run(ds, keys, policy)
	if err != nil {
		logger.Error("deduplication failed", "error", err)
		return err
	}
	logWarnings(logger, res.Warnings)

	s := res.Summary
	logger.Info("deduplication complete",
		"input_rows", s.InputRows,
		"output_rows", s.OutputRows,
		"removed_rows", s.RemovedRows,
		"removed_percent", fmt.Sprintf("%.2f", s.RemovedPercent),
	)

	if cfg.Output.Preview {
		if err := printPreview(out, "Result preview", res.Dataset, cfg.Output.PreviewRows); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	size, err := tabular.WriteFile(output, res.Dataset, tabular.WriteOptions{
		IncludeIndex: cfg.Output.IncludeIndex,
		Sheet:        cfg.Output.Sheet,
	})
	if err != nil {
		logger.Error("save failed", "error", err)
		return err
	}
	logger.Info("output written", "path", output, "bytes", size)

	stored := int64(-1)
	if cfg.Database.Enabled() {
		if stored, err = storeRows(ctx, cfg.Database, res.Dataset, runID); err != nil {
			logger.Error("database load failed", "table", cfg.Database.Table, "error", err)
			return err
		}
		logger.Info("rows stored", "table", cfg.Database.Table, "rows", stored)
	}

	printSummary(out, s, output, stored)
	logger.Info("=== sheetdedup finished ===")
	return nil
}

// checkPaths rejects an output that would overwrite the input, following
// symlinks and hard links.
func checkPaths(input, output string) error {
	in, err := resolvePath(input)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	out, err := resolvePath(output)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	if in == out || sameFile(in, out) {
		return fmt.Errorf("output %s is the same as input", output)
	}
	if _, err := tabular.DetectFormat(output); err != nil {
		return err
	}
	return nil
}

// resolvePath returns the absolute path with symlinks evaluated. A path that
// does not exist yet is resolved through its parent directory.
func resolvePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		return filepath.Join(dir, filepath.Base(abs)), nil
	}
	return abs, nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// keyColumns returns the configured key, or every column when AllColumns is set.
func keyColumns(cfg *config.DedupConfig, ds *dedup.Dataset) []string {
	if cfg.AllColumns {
		return append([]string(nil), ds.Columns...)
	}
	return cfg.Columns
}

func logWarnings(logger *slog.Logger, warnings []dedup.Warning) {
	for _, w := range warnings {
		logger.Warn(w.Message, "kind", string(w.Kind), "columns", strings.Join(w.Columns, ", "))
	}
}

func printPreview(w io.Writer, title string, ds *dedup.Dataset, n int) error {
	fmt.Fprintf(w, "\n%s:\n", color.New(color.Bold).Sprint(title))
	return tabular.Preview(w, ds, n)
}

// printSummary writes the colorized run summary. stored < 0 means no
// database load took place.
func printSummary(w io.Writer, s dedup.Summary, output string, stored int64) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "\n%s\n", bold("Summary"))
	fmt.Fprintf(w, "  Rows read:     %d\n", s.InputRows)
	fmt.Fprintf(w, "  Rows kept:     %s\n", green(s.OutputRows))
	fmt.Fprintf(w, "  Rows removed:  %s (%.2f%%)\n", yellow(s.RemovedRows), s.RemovedPercent)
	if stored >= 0 {
		fmt.Fprintf(w, "  Rows stored:   %d\n", stored)
	}
	fmt.Fprintf(w, "  Output:        %s\n", output)
}

// storeRows loads ds into the configured table.
func storeRows(ctx context.Context, cfg config.DatabaseConfig, ds *dedup.Dataset, runID uuid.UUID) (int64, error) {
	sink, closeSink, err := sinkOpener(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer closeSink()

	return sink.Write(ctx, cfg.Table, ds, runID)
}

func openSink(ctx context.Context, cfg config.DatabaseConfig) (web.RowWriter, func(), error) {
	pool, err := pgsink.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return pgsink.New(pool), pool.Close, nil
}
