package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopkit/drover/internal/state"
)

func newResumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Clear the pause flag",
		Long:  "Clear the pause flag so a loop can run again. A paused session is continued with 'drover run --resume'.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd)
		},
	}
}

func runResume(cmd *cobra.Command) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	// No state directory means no flag to clear.
	if _, err := os.Stat(state.StateDirPath(workDir)); os.IsNotExist(err) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Drover is not paused\n")
		return nil
	}

	paused, err := state.IsPaused(workDir)
	if err != nil {
		return err
	}
	if !paused {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Drover is not paused\n")
		return nil
	}

	if err := state.SetPaused(workDir, false); err != nil {
		return fmt.Errorf("failed to resume: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Pause flag cleared. Use 'drover run --resume' to continue the session.\n")
	return nil
}
