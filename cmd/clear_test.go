package cmd

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopkit/drover/internal/loop"
	"github.com/loopkit/drover/internal/memory"
	"github.com/loopkit/drover/internal/session"
	"github.com/loopkit/drover/internal/state"
)

func TestClearCommand_Structure(t *testing.T) {
	cmd := newClearCmd()

	assert.Equal(t, "clear", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("archive"))
}

func TestClearCommand_RemovesRunState(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, state.EnsureDroverDir(tmpDir))

	sessions := session.NewStore(nil, state.SessionFilePath(tmpDir))
	_, err := sessions.Start("Build the CSV importer", 10)
	require.NoError(t, err)

	progress := memory.NewLog(nil, state.ProgressFilePath(tmpDir))
	require.NoError(t, progress.Init("Build the CSV importer"))

	record := loop.NewIterationRecord(1)
	record.Finish()
	recordPath, err := loop.SaveRecord(state.LogsDirPath(tmpDir), record)
	require.NoError(t, err)

	require.NoError(t, state.SetCompleteSentinel(tmpDir))
	require.NoError(t, state.SetPaused(tmpDir, true))

	origDir, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(origDir) }()
	require.NoError(t, os.Chdir(tmpDir))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"clear"})

	require.NoError(t, cmd.Execute())

	_, err = os.Stat(state.SessionFilePath(tmpDir))
	assert.True(t, os.IsNotExist(err), "session file should be removed")
	assert.False(t, progress.Exists(), "progress log should be removed")
	_, err = os.Stat(recordPath)
	assert.True(t, os.IsNotExist(err), "round record should be removed")

	sentinel, err := state.HasCompleteSentinel(tmpDir)
	require.NoError(t, err)
	assert.False(t, sentinel)

	paused, err := state.IsPaused(tmpDir)
	require.NoError(t, err)
	assert.False(t, paused)

	assert.Contains(t, out.String(), "Removed 1 round record")
	assert.Contains(t, out.String(), "Run state cleared.")
}

func TestClearCommand_ArchivesProgressLog(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, state.EnsureDroverDir(tmpDir))

	progress := memory.NewLog(nil, state.ProgressFilePath(tmpDir))
	require.NoError(t, progress.Init("Build the CSV importer"))

	origDir, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(origDir) }()
	require.NoError(t, os.Chdir(tmpDir))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"clear", "--archive"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Progress log archived to")
	assert.False(t, progress.Exists())

	archives, err := memory.NewArchive(nil, state.ArchiveDirPath(tmpDir)).List()
	require.NoError(t, err)
	require.Len(t, archives, 1)

	content, err := os.ReadFile(archives[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "Build the CSV importer")
}

func TestClearCommand_EmptyWorkDir(t *testing.T) {
	tmpDir := t.TempDir()

	origDir, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(origDir) }()
	require.NoError(t, os.Chdir(tmpDir))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"clear"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Run state cleared.")
}
