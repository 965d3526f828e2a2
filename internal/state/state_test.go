package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDroverDir(t *testing.T) {
	t.Run("creates all directories if missing", func(t *testing.T) {
		tmpDir := t.TempDir()

		err := EnsureDroverDir(tmpDir)
		require.NoError(t, err)

		expectedDirs := []string{
			".drover",
			".drover/state",
			".drover/logs",
		}

		for _, dir := range expectedDirs {
			fullPath := filepath.Join(tmpDir, dir)
			info, err := os.Stat(fullPath)
			assert.NoError(t, err, "directory %s should exist", dir)
			assert.True(t, info.IsDir(), "%s should be a directory", dir)
		}
	})

	t.Run("is idempotent - calling twice succeeds", func(t *testing.T) {
		tmpDir := t.TempDir()

		err := EnsureDroverDir(tmpDir)
		require.NoError(t, err)

		err = EnsureDroverDir(tmpDir)
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(tmpDir, ".drover"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("returns error for invalid root path", func(t *testing.T) {
		err := EnsureDroverDir("/nonexistent/path/that/should/not/exist")
		assert.Error(t, err)
	})
}

func TestDroverDirPath(t *testing.T) {
	t.Run("returns correct path for subdirectory", func(t *testing.T) {
		root := "/some/project"

		assert.Equal(t, "/some/project/.drover", DroverDirPath(root))
		assert.Equal(t, "/some/project/.drover/state", StateDirPath(root))
		assert.Equal(t, "/some/project/.drover/logs", LogsDirPath(root))
		assert.Equal(t, "/some/project/.drover/session.json", SessionFilePath(root))
		assert.Equal(t, "/some/project/.drover/progress.md", ProgressFilePath(root))
		assert.Equal(t, "/some/project/.drover/complete", CompleteFilePath(root))
		assert.Equal(t, "/some/project/DONE.md", DoneFilePath(root))
	})
}

func TestPausedFlag(t *testing.T) {
	t.Run("not paused by default", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, EnsureDroverDir(tmpDir))

		paused, err := IsPaused(tmpDir)
		require.NoError(t, err)
		assert.False(t, paused)
	})

	t.Run("set and clear", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, EnsureDroverDir(tmpDir))

		require.NoError(t, SetPaused(tmpDir, true))
		paused, err := IsPaused(tmpDir)
		require.NoError(t, err)
		assert.True(t, paused)

		require.NoError(t, SetPaused(tmpDir, false))
		paused, err = IsPaused(tmpDir)
		require.NoError(t, err)
		assert.False(t, paused)
	})

	t.Run("clearing when not paused is not an error", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, EnsureDroverDir(tmpDir))

		assert.NoError(t, SetPaused(tmpDir, false))
	})

	t.Run("errors when state directory is missing", func(t *testing.T) {
		tmpDir := t.TempDir()

		_, err := IsPaused(tmpDir)
		assert.Error(t, err)

		err = SetPaused(tmpDir, true)
		assert.Error(t, err)
	})
}

func TestCompleteSentinel(t *testing.T) {
	t.Run("absent by default", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, EnsureDroverDir(tmpDir))

		found, err := HasCompleteSentinel(tmpDir)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("detects .drover/complete", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, EnsureDroverDir(tmpDir))

		require.NoError(t, SetCompleteSentinel(tmpDir))

		found, err := HasCompleteSentinel(tmpDir)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("detects root DONE.md", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, EnsureDroverDir(tmpDir))

		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "DONE.md"), []byte("done\n"), 0644))

		found, err := HasCompleteSentinel(tmpDir)
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("clear removes both sentinels", func(t *testing.T) {
		tmpDir := t.TempDir()
		require.NoError(t, EnsureDroverDir(tmpDir))

		require.NoError(t, SetCompleteSentinel(tmpDir))
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "DONE.md"), []byte("done\n"), 0644))

		require.NoError(t, ClearCompleteSentinel(tmpDir))

		found, err := HasCompleteSentinel(tmpDir)
		require.NoError(t, err)
		assert.False(t, found)
	})
}
