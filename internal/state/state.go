// Package state manages the .drover directory structure and flag files.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Names inside the .drover structure.
const (
	DroverDir    = ".drover"
	StateDir     = "state"
	LogsDir      = "logs"
	ArchiveDir   = "archive"
	PausedFile   = "paused"
	SessionFile  = "session.json"
	ProgressFile = "progress.md"
	CompleteFile = "complete"

	// DoneFile lives at the workspace root, not under .drover, so the
	// agent can create it without knowing about the state directory.
	DoneFile = "DONE.md"
)

// DroverDirPath returns the path to the .drover directory.
func DroverDirPath(root string) string {
	return filepath.Join(root, DroverDir)
}

// StateDirPath returns the path to the state directory.
func StateDirPath(root string) string {
	return filepath.Join(root, DroverDir, StateDir)
}

// LogsDirPath returns the path to the round logs directory.
func LogsDirPath(root string) string {
	return filepath.Join(root, DroverDir, LogsDir)
}

// ArchiveDirPath returns the path to the rotated progress log directory.
func ArchiveDirPath(root string) string {
	return filepath.Join(root, DroverDir, ArchiveDir)
}

// SessionFilePath returns the path to the session file.
func SessionFilePath(root string) string {
	return filepath.Join(root, DroverDir, SessionFile)
}

// ProgressFilePath returns the path to the progress log.
func ProgressFilePath(root string) string {
	return filepath.Join(root, DroverDir, ProgressFile)
}

// PausedFilePath returns the path to the pause flag file.
func PausedFilePath(root string) string {
	return filepath.Join(root, DroverDir, StateDir, PausedFile)
}

// CompleteFilePath returns the path to the completion sentinel.
func CompleteFilePath(root string) string {
	return filepath.Join(root, DroverDir, CompleteFile)
}

// DoneFilePath returns the path to the root-level completion sentinel.
func DoneFilePath(root string) string {
	return filepath.Join(root, DoneFile)
}

// EnsureDroverDir creates the .drover directory structure if it doesn't
// exist. It creates:
//   - .drover/
//   - .drover/state/
//   - .drover/logs/
//
// The function is idempotent. All directories are created with 0755.
func EnsureDroverDir(root string) error {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return fmt.Errorf("root directory does not exist: %s", root)
	}

	dirs := []string{
		DroverDirPath(root),
		StateDirPath(root),
		LogsDirPath(root),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// IsPaused checks if the loop is currently paused.
func IsPaused(root string) (bool, error) {
	stateDir := StateDirPath(root)
	if _, err := os.Stat(stateDir); os.IsNotExist(err) {
		return false, fmt.Errorf(".drover/state directory does not exist")
	}

	_, err := os.Stat(PausedFilePath(root))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check paused state: %w", err)
	}
	return true, nil
}

// SetPaused sets or clears the pause flag.
func SetPaused(root string, paused bool) error {
	stateDir := StateDirPath(root)
	if _, err := os.Stat(stateDir); os.IsNotExist(err) {
		return fmt.Errorf(".drover/state directory does not exist")
	}

	pausedPath := PausedFilePath(root)

	if paused {
		file, err := os.Create(pausedPath)
		if err != nil {
			return fmt.Errorf("failed to create paused file: %w", err)
		}
		return file.Close()
	}

	err := os.Remove(pausedPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove paused file: %w", err)
	}
	return nil
}

// HasCompleteSentinel reports whether either completion sentinel exists:
// .drover/complete or DONE.md at the workspace root.
func HasCompleteSentinel(root string) (bool, error) {
	for _, path := range []string{CompleteFilePath(root), DoneFilePath(root)} {
		_, err := os.Stat(path)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("failed to check completion sentinel: %w", err)
		}
	}
	return false, nil
}

// SetCompleteSentinel creates the .drover/complete sentinel file.
func SetCompleteSentinel(root string) error {
	file, err := os.Create(CompleteFilePath(root))
	if err != nil {
		return fmt.Errorf("failed to create completion sentinel: %w", err)
	}
	return file.Close()
}

// ClearCompleteSentinel removes both completion sentinels if present.
func ClearCompleteSentinel(root string) error {
	for _, path := range []string{CompleteFilePath(root), DoneFilePath(root)} {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove completion sentinel: %w", err)
		}
	}
	return nil
}
