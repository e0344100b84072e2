// Command opsdeck is the terminal dashboard for an opsdeckd backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsdeck/opsdeck/internal/config"
)

// Set via -ldflags at build time.
var version = "dev"

var cfg *config.Config

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "opsdeck",
	Short: "Terminal dashboard for the opsdeckd backend",
	Long: `OpsDeck is a terminal client for monitoring and steering an opsdeckd
backend: service runtime, pipeline jobs, logs, environment verification,
knowledge-base stats, and API usage, all polled over a local socket.`,
	RunE: runDashboard,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a one-shot backend snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the client version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("opsdeck", version)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
