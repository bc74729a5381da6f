package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/chatwoot/inboxq/internal/metrics"
	"github.com/chatwoot/inboxq/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one conversation list over a JSON HTTP API",
		Long: strings.TrimSpace(`
Runs a long-lived session behind an HTTP API for a web UI. The location lives
in memory, seeded from --url; saved filters and preferences use the configured
store. Prometheus metrics are exposed on /metrics.`),
		Example: strings.TrimSpace(`
  inboxq serve --addr :8787
  inboxq serve --url '?status=active' --origin https://app.example.com
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ws, err := openWorkspace(cmd, workspaceOptions{memoryLocation: true})
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			if !flagOrAliasChanged(cmd, "addr") && ws.settings.Server.Addr != "" {
				addr = ws.settings.Server.Addr
			}
			if len(origins) == 0 {
				origins = ws.settings.Server.AllowedOrigins
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			if err := metrics.Register(reg); err != nil {
				return fmt.Errorf("register metrics: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := fetchResult(ws.session.SyncWithLocation(ctx)); err != nil {
				slog.Warn("initial fetch failed", "error", err)
			}

			srv := server.New(ws.session, ws.memory, server.Config{
				CORSOrigins: origins,
				Gatherer:    reg,
				Logger:      slog.Default(),
			})
			newFormatter(cmd).Note("Serving on %s", addr)
			return srv.ListenAndServe(ctx, addr)
		}),
	}

	cmd.Flags().StringVar(&addr, "addr", ":8787", "Listen address (env INBOXQ_SERVER_ADDR)")
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "Allowed CORS origin (repeatable)")
	return cmd
}
