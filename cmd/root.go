// Package cmd implements the drover command line interface.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgFile string

// GetConfigFile returns the config file path from the persistent flag.
func GetConfigFile() string {
	return cfgFile
}

// NewRootCmd creates the root command for the drover CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "drover",
		Short: "Iteration controller for agent-driven coding loops",
		Long: `Drover drives an external coding agent through repeated rounds until the
work is done, the run is unrecoverable, or a budget runs out. Each round
builds a prompt from the plan and recent progress, invokes the agent,
classifies its output, validates the working tree, and commits what changed.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./drover.yaml, then $XDG_CONFIG_HOME/drover/config.yaml)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newPauseCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newLogsCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context so a running loop can stop between rounds.
func Execute() {
	// A .env in the working directory may carry DROVER_* overrides.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
