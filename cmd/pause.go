package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopkit/drover/internal/state"
)

func newPauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the iteration loop",
		Long:  "Set the pause flag. A running loop stops between rounds and keeps its session for 'drover run --resume'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPause(cmd)
		},
	}
}

func runPause(cmd *cobra.Command) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	if err := state.EnsureDroverDir(workDir); err != nil {
		return fmt.Errorf("failed to prepare state directory: %w", err)
	}

	paused, err := state.IsPaused(workDir)
	if err != nil {
		return err
	}
	if paused {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Drover is already paused\n")
		return nil
	}

	if err := state.SetPaused(workDir, true); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pause requested. The loop stops after the current round; continue with 'drover run --resume'.\n")
	return nil
}
