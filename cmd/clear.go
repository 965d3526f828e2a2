package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopkit/drover/internal/loop"
	"github.com/loopkit/drover/internal/memory"
	"github.com/loopkit/drover/internal/session"
	"github.com/loopkit/drover/internal/state"
)

func newClearCmd() *cobra.Command {
	var archive bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Reset run state",
		Long:  "Remove the session file, progress log, round records, completion sentinels, and pause flag. The plan file is left alone.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd, archive)
		},
	}

	cmd.Flags().BoolVar(&archive, "archive", false, "move the progress log into .drover/archive instead of deleting it")

	return cmd
}

func runClear(cmd *cobra.Command, archiveLog bool) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	out := cmd.OutOrStdout()

	sessions := session.NewStore(nil, state.SessionFilePath(workDir))
	if err := sessions.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	progress := memory.NewLog(nil, state.ProgressFilePath(workDir))
	if archiveLog && progress.Exists() {
		archived, err := memory.NewArchive(nil, state.ArchiveDirPath(workDir)).Rotate(progress.Path())
		if err != nil {
			return fmt.Errorf("failed to archive progress log: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Progress log archived to %s\n", archived)
	} else if err := progress.Clear(); err != nil {
		return fmt.Errorf("failed to clear progress log: %w", err)
	}

	removed, err := removeRoundRecords(state.LogsDirPath(workDir))
	if err != nil {
		return err
	}

	if err := state.ClearCompleteSentinel(workDir); err != nil {
		return fmt.Errorf("failed to clear completion sentinel: %w", err)
	}

	// The pause flag only exists when the state directory does.
	if _, err := os.Stat(state.StateDirPath(workDir)); err == nil {
		if err := state.SetPaused(workDir, false); err != nil {
			return fmt.Errorf("failed to clear pause flag: %w", err)
		}
	}

	if removed > 0 {
		_, _ = fmt.Fprintf(out, "Removed %d round records.\n", removed)
	}
	_, _ = fmt.Fprintln(out, "Run state cleared.")
	return nil
}

func removeRoundRecords(logsDir string) (int, error) {
	paths, err := loop.ListRecordPaths(logsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list round records: %w", err)
	}
	removed := 0
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}
