// Package cli implements the sheetdedup command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetdedup/internal/config"
	"github.com/JonMunkholm/sheetdedup/internal/dedup"
	"github.com/JonMunkholm/sheetdedup/internal/diagnostics"
	"github.com/JonMunkholm/sheetdedup/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
)

// exitInterrupted is the exit code after SIGINT or SIGTERM.
const exitInterrupted = 130

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	return exitCode(rootCmd.ErrOrStderr(), rootCmd.ExecuteContext(ctx))
}

// exitCode reports err on w and maps it to an exit code.
func exitCode(w io.Writer, err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "Interrupted")
		return exitInterrupted
	}

	uerr := diagnostics.NewUserError(err)
	if uerr.Specific() {
		slog.Debug("command failed", "code", uerr.User.Code, "error", uerr.Technical)
		fmt.Fprintf(w, "Error: %s\n", uerr.Display())
	} else {
		fmt.Fprintf(w, "Error: %v\n", uerr.Technical)
	}
	return 1
}

// options holds raw flag values. They override the loaded configuration
// only when set on the command line.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	logFile    string

	input        string
	output       string
	columns      []string
	allColumns   bool
	keep         string
	sheet        string
	includeIndex bool
	noPreview    bool
	previewRows  int
	pgTable      string

	maxGroups int

	host string
	port int

	cfg      *config.Config
	closeLog func() error
}

// load resolves the configuration for cmd and sets up logging.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	// Apply precedence: flag > env > config file > default
	changed := cmd.Flags().Changed
	if changed("keep") {
		if _, err := dedup.ParsePolicy(o.keep); err != nil {
			return err
		}
		cfg.Dedup.Keep = o.keep
	}
	if changed("columns") {
		cfg.Dedup.Columns = o.columns
	}
	if changed("all-columns") {
		cfg.Dedup.AllColumns = o.allColumns
	}
	if changed("sheet") {
		cfg.Dedup.Sheet = o.sheet
	}
	if changed("include-index") {
		cfg.Output.IncludeIndex = o.includeIndex
	}
	if changed("no-preview") {
		cfg.Output.Preview = !o.noPreview
	}
	if changed("preview-rows") {
		cfg.Output.PreviewRows = o.previewRows
	}
	if changed("pg-table") {
		cfg.Database.Table = o.pgTable
	}
	if changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if changed("log-file") {
		cfg.Logging.File = o.logFile
	}
	if changed("host") {
		cfg.Server.Host = o.host
	}
	if changed("port") {
		cfg.Server.Port = o.port
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	w, closeLog, err := logging.Output(cmd.OutOrStdout(), cfg.Logging.File)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format, w)

	o.cfg = cfg
	o.closeLog = closeLog
	return nil
}

// close releases the log file, if any.
func (o *options) close() {
	if o.closeLog != nil {
		_ = o.closeLog()
		o.closeLog = nil
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:   "sheetdedup",
		Short: "Remove duplicate rows from CSV and Excel files",
		Long: `Remove duplicate rows from a spreadsheet.

Rows are duplicates when they share the same values in the key columns.
The keep policy decides what survives from each group of duplicates:
  first  keep the earliest row
  last   keep the latest row
  none   drop every row that has a duplicate

Settings are read from flags, environment variables, the YAML file named by
--config or $SHEETDEDUP_CONFIG, and built-in defaults, in that order.`,
		Example: `  sheetdedup -i raw.xlsx -o clean.xlsx
  sheetdedup -i raw.csv -o clean.csv -c "Date,Machine No." -k last
  sheetdedup -i raw.csv -o unique.csv --all-columns -k none`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer o.close()
			return runDedup(cmd.Context(), cmd.OutOrStdout(), o.cfg, o.input, o.output)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "YAML config file (default $"+config.FileEnv+")")
	pf.StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&o.logFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&o.logFile, "log-file", "", "Also append logs to this file")

	f := rootCmd.Flags()
	f.StringVarP(&o.input, "input", "i", "", "Input file (.csv, .xlsx, .xlsm)")
	f.StringVarP(&o.output, "output", "o", "", "Output file (.csv, .xlsx, .xlsm)")
	addKeyFlags(rootCmd, o)
	f.BoolVar(&o.includeIndex, "include-index", false, "Write a leading 0..n-1 row index column")
	f.BoolVar(&o.noPreview, "no-preview", false, "Do not print input and result previews")
	f.IntVar(&o.previewRows, "preview-rows", 5, "Rows shown in each preview")
	f.StringVar(&o.pgTable, "pg-table", "", "Also load the result into this PostgreSQL table (needs DATABASE_URL)")
	_ = rootCmd.MarkFlagRequired("input")
	_ = rootCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(newAnalyzeCmd(o))
	rootCmd.AddCommand(newColumnsCmd(o))
	rootCmd.AddCommand(newServeCmd(o))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// addKeyFlags registers the grouping flags shared by the run and analyze commands.
func addKeyFlags(cmd *cobra.Command, o *options) {
	f := cmd.Flags()
	f.StringSliceVarP(&o.columns, "columns", "c", []string{"Date", "Machine No."}, "Key columns (comma-separated or repeated)")
	f.BoolVar(&o.allColumns, "all-columns", false, "Use every column as the key")
	f.StringVarP(&o.keep, "keep", "k", "first", "Keep policy (first, last, none)")
	f.StringVar(&o.sheet, "sheet", "", "Worksheet to read (default first sheet)")
}
