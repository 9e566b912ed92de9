package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by the release build via -ldflags.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "selfwatch",
		Short: "Self-observation analytics for evolving spatial systems",
		Long: `selfwatch watches a population of moving entities and measures how it
observes itself: spatial entropy and its history, recurring signatures,
regional correlation, complexity, stable invariants and a cascade of
self-predicting observers.

It ships a reference particle simulation so the engine can run headless,
serve live snapshots over HTTP or MCP, and record runs to SQLite.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.selfwatch/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newRunCmd(),
		newAnalyzeCmd(),
		newServeCmd(),
		newMCPServerCmd(),
		newRunsCmd(),
		newExportCmd(),
		newConfigCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
