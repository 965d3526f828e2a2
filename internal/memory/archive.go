package memory

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Archive rotates progress logs into a directory, one timestamped file per
// rotation.
type Archive struct {
	fs  afero.Fs
	dir string
	now func() time.Time
}

// NewArchive creates an Archive rooted at dir. A nil fs defaults to the OS
// filesystem.
func NewArchive(fs afero.Fs, dir string) *Archive {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Archive{fs: fs, dir: dir, now: time.Now}
}

// Rotate moves the file at path into the archive directory under a
// timestamped name and returns the archived path.
func (a *Archive) Rotate(path string) (string, error) {
	content, err := afero.ReadFile(a.fs, path)
	if err != nil {
		return "", fmt.Errorf("failed to read progress log: %w", err)
	}

	if err := a.fs.MkdirAll(a.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	archived := a.nextArchivePath(a.now())
	if err := afero.WriteFile(a.fs, archived, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}

	if err := a.fs.Remove(path); err != nil {
		_ = a.fs.Remove(archived)
		return "", fmt.Errorf("failed to remove progress log: %w", err)
	}

	return archived, nil
}

// nextArchivePath picks a timestamped filename, adding a numeric suffix when
// a rotation already happened in the same second.
func (a *Archive) nextArchivePath(t time.Time) string {
	base := fmt.Sprintf("progress-%s", t.Format("20060102-150405"))
	path := filepath.Join(a.dir, base+".md")
	if exists, _ := afero.Exists(a.fs, path); !exists {
		return path
	}
	for i := 1; i < 1000; i++ {
		candidate := filepath.Join(a.dir, fmt.Sprintf("%s-%d.md", base, i))
		if exists, _ := afero.Exists(a.fs, candidate); !exists {
			return candidate
		}
	}
	return path
}

// List returns the archived progress logs, newest first.
func (a *Archive) List() ([]string, error) {
	exists, err := afero.DirExists(a.fs, a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive directory: %w", err)
	}
	if !exists {
		return nil, nil
	}

	entries, err := afero.ReadDir(a.fs, a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var archives []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "progress-") && strings.HasSuffix(name, ".md") {
			archives = append(archives, filepath.Join(a.dir, name))
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(archives)))
	return archives, nil
}

// Dir returns the archive directory path.
func (a *Archive) Dir() string {
	return a.dir
}
