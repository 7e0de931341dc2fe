package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chart-back",
	Short: "Live chart ingestion backend",
	Long: `Backend for a live multi-asset chart terminal.

Each chart widget runs its own ingestion pipeline: a one-shot historical
fetch and an unbounded live tick stream are merged into one deduplicated,
bounded, chronologically sorted series with quarter-hour boundary markers,
and exposed to the rendering layer over HTTP and WebSocket.`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
