package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chart-back/internal/app"
	"github.com/chart-back/pkg/config"
	"github.com/chart-back/pkg/logger"
)

var (
	servePort int
	logLevel  string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chart ingestion server",
	Long: `Start the chart ingestion server.

This starts the widget manager, the upstream history/feed clients and the
boundary HTTP/WebSocket API, plus the optional Redis warm-start cache and
NATS update fan-out when enabled.

Examples:
  chart-back serve                    # Start with default settings
  chart-back serve --port 9090        # Start on custom port
  chart-back serve --log-level debug  # Enable debug logging`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Server port (overrides SERVER_PORT)")
	serveCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
}

func runServe(cmd *cobra.Command, args []string) error {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	application := app.New(cfg, log)
	if err := application.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := application.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.WithField("signal", sig.String()).Info("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return application.Stop(ctx)
}
