package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/sheetdedup/internal/config"
	"github.com/JonMunkholm/sheetdedup/internal/web"
)

func newServeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the dedup API:
  GET  /healthz       liveness and job capacity
  POST /api/dedup     upload a file, download the deduplicated file
  POST /api/analyze   upload a file, get duplicate groups as JSON`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer o.close()
			return runServe(cmd.Context(), o.cfg)
		},
	}

	cmd.Flags().StringVar(&o.host, "host", "127.0.0.1", "Listen host")
	cmd.Flags().IntVar(&o.port, "port", 8080, "Listen port")
	return cmd
}

// runServe serves until ctx is cancelled, then shuts down gracefully.
func runServe(ctx context.Context, cfg *config.Config) error {
	var sink web.RowWriter
	if cfg.Database.Enabled() {
		s, closeSink, err := sinkOpener(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer closeSink()
		sink = s
		slog.Info("database sink enabled", "table", cfg.Database.Table)
	}

	srv := web.NewServer(cfg, sink)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
