package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopkit/drover/internal/session"
	"github.com/loopkit/drover/internal/state"
)

func TestStatusCommand_Structure(t *testing.T) {
	cmd := newStatusCmd()

	assert.Equal(t, "status", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
}

func TestStatusCommand_EmptyWorkDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tmpDir := t.TempDir()

	origDir, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(origDir) }()
	require.NoError(t, os.Chdir(tmpDir))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"status"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No session")
	assert.Contains(t, out.String(), "Total: 0")
}

func TestStatusCommand_WithSessionAndPlan(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tmpDir := t.TempDir()

	sessions := session.NewStore(nil, state.SessionFilePath(tmpDir))
	_, err := sessions.Start("Build the CSV importer", 10)
	require.NoError(t, err)

	planContent := "- [x] Parse the CSV header\n- [ ] Stream rows into the store\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "PLAN.md"), []byte(planContent), 0644))

	origDir, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(origDir) }()
	require.NoError(t, os.Chdir(tmpDir))

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"status"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Build the CSV importer")
	assert.Contains(t, out.String(), "Status: running")
	assert.Contains(t, out.String(), "Total: 2")
	assert.Contains(t, out.String(), "Completed: 1")
	assert.Contains(t, out.String(), "Stream rows into the store")
}
