package cli

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/metaborank/metaborank/internal/infrastructure/monitoring"
	"github.com/metaborank/metaborank/internal/infrastructure/monitoring/logging"
	httpiface "github.com/metaborank/metaborank/internal/interfaces/http"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the prediction HTTP server",
		Long: "Serve the prediction pipeline over HTTP with POST /api/v1/predict,\n" +
			"GET /healthz and GET /metrics endpoints.  The server shuts down\n" +
			"gracefully on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := getAppContext(cmd)
			if addr != "" {
				app.cfg.Server.Addr = addr
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := monitoring.NewPipelineMetrics(registry)

			service, err := buildService(app, metrics)
			if err != nil {
				return err
			}

			server := httpiface.NewServer(app.cfg.Server.Addr, app.cfg.Server.Mode, service, registry, app.log)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := server.Run(ctx); err != nil {
				return err
			}
			app.log.Info("server stopped", logging.String("addr", app.cfg.Server.Addr))
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address override (default: the configured server.addr)")
	return cmd
}
