package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopkit/drover/internal/loop"
)

func TestNewRunCmd(t *testing.T) {
	cmd := newRunCmd()

	assert.Equal(t, "run", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	for _, name := range []string{
		"max-iterations", "warmup", "manual", "resume", "commit", "push", "pr",
		"validate", "calls-per-hour", "cost-ceiling", "token",
		"require-exit-signal", "min-indicators", "task", "plan", "stream",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %q", name)
	}
}

func TestRunCmd_FlagDefaults(t *testing.T) {
	cmd := newRunCmd()

	commit := cmd.Flags().Lookup("commit")
	require.NotNil(t, commit)
	assert.Equal(t, "true", commit.DefValue)

	validate := cmd.Flags().Lookup("validate")
	require.NotNil(t, validate)
	assert.Equal(t, "true", validate.DefValue)

	maxIter := cmd.Flags().Lookup("max-iterations")
	require.NotNil(t, maxIter)
	assert.Equal(t, "0", maxIter.DefValue)

	push := cmd.Flags().Lookup("push")
	require.NotNil(t, push)
	assert.Equal(t, "false", push.DefValue)
}

func TestApplyRunFlags_OverridesOnlyChanged(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--max-iterations", "40",
		"--push",
		"--token", "[ALL-DONE]",
		"--task", "Build the CSV importer",
		"--resume",
	}))

	opts := loop.Options{
		MaxIterations:     10,
		HardCap:           30,
		AutoCommit:        true,
		ValidationEnabled: true,
		WarmupRounds:      2,
	}
	flags := runFlags{
		maxIterations: 40,
		push:          true,
		token:         "[ALL-DONE]",
		task:          "Build the CSV importer",
		resume:        true,
	}

	applyRunFlags(cmd, &opts, flags)

	assert.Equal(t, 40, opts.MaxIterations)
	assert.Equal(t, 40, opts.HardCap, "hard cap lifts to cover the requested rounds")
	assert.True(t, opts.Push)
	assert.Equal(t, "[ALL-DONE]", opts.Policy.Token)
	assert.Equal(t, "Build the CSV importer", opts.Task)
	assert.True(t, opts.Resume)

	// Untouched flags keep their config-derived values.
	assert.True(t, opts.AutoCommit)
	assert.True(t, opts.ValidationEnabled)
	assert.Equal(t, 2, opts.WarmupRounds)
}

func TestApplyRunFlags_NoFlagsKeepsConfig(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.Flags().Parse(nil))

	opts := loop.Options{MaxIterations: 25, HardCap: 50, AutoCommit: true}
	applyRunFlags(cmd, &opts, runFlags{commit: true, validate: true})

	assert.Equal(t, 25, opts.MaxIterations)
	assert.Equal(t, 50, opts.HardCap)
	assert.True(t, opts.AutoCommit)
	assert.False(t, opts.Resume)
}

func TestRunCmd_CompletesWithScriptedAgent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	tmpDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	scriptDir := t.TempDir()
	script := filepath.Join(scriptDir, "agent.sh")
	scriptBody := "#!/bin/bash\necho \"Wrapping up the parser.\"\necho '[DROVER-COMPLETE]'\n"
	require.NoError(t, os.WriteFile(script, []byte(scriptBody), 0755))

	configYAML := fmt.Sprintf("agent:\n  command: %s\n", script)
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "drover.yaml"), []byte(configYAML), 0644))

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"run", "--task", "Build the CSV parser", "--validate=false", "--commit=false", "--stream=false"})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "## Run Result: completed")
}

func TestRunCmd_FailingRunReturnsError(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	tmpDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	defer func() { _ = os.Chdir(oldWd) }()
	require.NoError(t, os.Chdir(tmpDir))

	configYAML := "agent:\n  command: drover-agent-that-does-not-exist\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "drover.yaml"), []byte(configYAML), 0644))

	rootCmd := NewRootCmd()
	rootCmd.SetArgs([]string{"run", "--task", "Build the CSV parser", "--stream=false"})

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)

	assert.Error(t, rootCmd.Execute())
}
