package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/loopkit/drover/internal/memory"
	"github.com/loopkit/drover/internal/state"
)

func newLogsCmd() *cobra.Command {
	var tailCount int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the progress log",
		Long:  "Print the tail of the progress log. With --follow, stream new entries as the loop appends them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, tailCount, follow)
		},
	}

	cmd.Flags().IntVarP(&tailCount, "tail", "n", 5, "number of round entries to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream appended log output")

	return cmd
}

func runLogs(cmd *cobra.Command, tailCount int, follow bool) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	progress := memory.NewLog(nil, state.ProgressFilePath(workDir))
	if !progress.Exists() {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No progress log found. Run 'drover run' to start a loop.\n")
		return nil
	}

	tail, err := progress.Tail(tailCount)
	if err != nil {
		return fmt.Errorf("failed to read progress log: %w", err)
	}
	_, _ = fmt.Fprint(cmd.OutOrStdout(), tail)

	if !follow {
		return nil
	}
	return followFile(cmd.Context(), cmd.OutOrStdout(), progress.Path())
}

// followFile streams bytes appended to path until the context is cancelled.
// Truncation resets the read offset so a cleared log starts over.
func followFile(ctx context.Context, w io.Writer, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory rather than the file: editors and the clear
	// command replace the file, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch log directory: %w", err)
	}

	offset, err := fileSize(path)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			offset, err = copyAppended(w, path, offset)
			if err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher failed: %w", err)
		}
	}
}

// copyAppended writes everything past offset to w and returns the new offset.
func copyAppended(w io.Writer, path string, offset int64) (int64, error) {
	size, err := fileSize(path)
	if err != nil {
		return offset, err
	}
	if size < offset {
		offset = 0
	}
	if size == offset {
		return offset, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return offset, fmt.Errorf("failed to open progress log: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("failed to seek progress log: %w", err)
	}
	n, err := io.Copy(w, file)
	if err != nil {
		return offset, fmt.Errorf("failed to read progress log: %w", err)
	}
	return offset + n, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to stat progress log: %w", err)
	}
	return info.Size(), nil
}
