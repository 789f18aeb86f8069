package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aristath/qdr/internal/config"
	"github.com/aristath/qdr/internal/server"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the optimization API and the background cache jobs.
Configuration comes from the environment (.env supported).

Example:
  GO_PORT=8001 qdr serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, cfg, log)
}
