package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/climate-pipeline/internal/mlmetrics"
	"github.com/sells-group/climate-pipeline/internal/runlog"
	"github.com/sells-group/climate-pipeline/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only ops API",
	Long:  "Serves run history, ML metrics, liveness, and Prometheus metrics over HTTP.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := server.New(
			fmt.Sprintf(":%d", port),
			runlog.New(cfg.Warehouse.Path, nil),
			mlmetrics.New(cfg.Warehouse.Path, nil),
		)

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down ops server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "serve: listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
