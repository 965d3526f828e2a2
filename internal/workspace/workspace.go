// Package workspace inspects the working tree for changes between rounds.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// skipDirs are directories the controller itself writes into or that never
// reflect agent work; they are excluded from fingerprints.
var skipDirs = map[string]bool{
	".git":    true,
	".drover": true,
}

// Fingerprint summarizes the working tree cheaply enough to compare before
// and after an agent invocation.
type Fingerprint struct {
	Files     int
	Bytes     int64
	NewestMod time.Time
}

// Equal reports whether two fingerprints describe the same tree state.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Files == other.Files &&
		f.Bytes == other.Bytes &&
		f.NewestMod.Equal(other.NewestMod)
}

// Snapshot walks root and returns its fingerprint. Entries that vanish
// mid-walk are tolerated; a missing root is an error.
func Snapshot(root string) (Fingerprint, error) {
	if _, err := os.Stat(root); err != nil {
		return Fingerprint{}, fmt.Errorf("failed to stat workspace root: %w", err)
	}

	var fp Fingerprint
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		fp.Files++
		fp.Bytes += info.Size()
		if info.ModTime().After(fp.NewestMod) {
			fp.NewestMod = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to walk workspace: %w", err)
	}

	return fp, nil
}
