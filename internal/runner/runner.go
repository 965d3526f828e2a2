// Package runner wires configuration into loop dependencies and executes runs.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/loopkit/drover/internal/agent"
	"github.com/loopkit/drover/internal/classify"
	"github.com/loopkit/drover/internal/config"
	gitpkg "github.com/loopkit/drover/internal/git"
	"github.com/loopkit/drover/internal/loop"
	"github.com/loopkit/drover/internal/memory"
	"github.com/loopkit/drover/internal/session"
	"github.com/loopkit/drover/internal/state"
	"github.com/loopkit/drover/internal/verify"
)

// Options carries the per-invocation settings layered over the config file.
type Options struct {
	// Loop is the fully merged set of loop options (config values plus any
	// flag overrides, resolved by the caller).
	Loop loop.Options

	// PlanPath overrides the configured plan file when set.
	PlanPath string

	// Stream mirrors agent output lines to stdout as they arrive.
	Stream bool
}

// Run builds the loop dependencies from the config and executes the
// controller until it stops. The returned result is also rendered to stdout.
func Run(ctx context.Context, workDir string, cfg *config.Config, opts Options, stdout, stderr io.Writer) (*loop.Result, error) {
	if err := state.EnsureDroverDir(workDir); err != nil {
		return nil, fmt.Errorf("failed to prepare state directory: %w", err)
	}

	// A pause flag left behind by an earlier run would stop a brand-new
	// loop before its first round.
	if !opts.Loop.Resume {
		if err := state.SetPaused(workDir, false); err != nil {
			_, _ = fmt.Fprintf(stderr, "warning: could not clear stale pause flag: %v\n", err)
		}
	}

	cli := agent.NewCLI(agent.CLIOptions{
		Command:       cfg.Agent.Command,
		Args:          cfg.Agent.Args,
		PromptOnStdin: cfg.Agent.PromptOnStdin,
		Env:           cfg.Agent.Env,
	})
	if !cli.Available() {
		return nil, fmt.Errorf("agent command %q not found in PATH", cfg.Agent.Command)
	}

	planPath := opts.PlanPath
	if planPath == "" {
		planPath = cfg.Workspace.Plan
	}
	if !filepath.IsAbs(planPath) {
		planPath = filepath.Join(workDir, planPath)
	}

	loopOpts := opts.Loop
	if opts.Stream {
		loopOpts.OnOutputLine = func(line string) {
			_, _ = fmt.Fprintln(stdout, line)
		}
	}

	controller := loop.NewController(loop.ControllerDeps{
		Agent:     cli,
		Validator: verify.NewCommandRunner(workDir),
		Git:       gitpkg.NewShellManager(workDir, cfg.Git.BranchPrefix),
		Progress:  memory.NewLog(nil, state.ProgressFilePath(workDir)),
		Sessions:  session.NewStore(nil, state.SessionFilePath(workDir)),
		WorkDir:   workDir,
		PlanPath:  planPath,
		LogsDir:   state.LogsDirPath(workDir),
	}, loopOpts)

	if loopOpts.Resume {
		_, _ = fmt.Fprintln(stdout, "Resuming the paused session")
	}
	_, _ = fmt.Fprintf(stdout, "Starting drover loop (max %d rounds)\n\n", loopOpts.MaxIterations)

	result, err := controller.Run(ctx)
	if err != nil {
		return nil, err
	}

	_, _ = fmt.Fprintf(stdout, "\n%s", FormatResult(result))
	return result, nil
}

// OptionsFromConfig maps file configuration onto loop options. Callers layer
// flag overrides on top of the returned value.
func OptionsFromConfig(cfg *config.Config) loop.Options {
	opts := loop.DefaultOptions()

	opts.MaxIterations = cfg.Loop.MaxIterations
	opts.HardCap = cfg.Loop.HardCap
	opts.WarmupRounds = cfg.Loop.WarmupRounds
	opts.Manual = cfg.Loop.Manual
	opts.TokenBudget = cfg.Loop.TokenBudget

	opts.Policy = classify.Policy{
		Token:             cfg.Completion.Token,
		RequireExitSignal: cfg.Completion.RequireExitSignal,
		MinIndicators:     cfg.Completion.MinIndicators,
	}

	opts.ValidationEnabled = cfg.Validation.Enabled
	opts.CheapChecks = cfg.Validation.CheapChecks
	opts.FullChecks = cfg.Validation.FullChecks

	opts.Breaker = loop.BreakerConfig{
		MaxConsecutiveFailures: cfg.Breaker.MaxConsecutiveFailures,
		MaxDistinctSignatures:  cfg.Breaker.MaxDistinctSignatures,
	}

	opts.CallsPerHour = cfg.Limits.CallsPerHour
	opts.MaxRateWait = time.Duration(cfg.Limits.MaxRateWaitSeconds) * time.Second
	opts.CostCeilingUSD = cfg.Limits.CostCeilingUSD
	opts.AgentTimeout = time.Duration(cfg.Agent.TimeoutMinutes) * time.Minute

	opts.AutoCommit = cfg.Git.AutoCommit
	opts.Push = cfg.Git.Push
	opts.OpenPR = cfg.Git.OpenPR

	return opts
}

// FormatResult formats a run result for CLI output.
func FormatResult(result *loop.Result) string {
	output := fmt.Sprintf("## Run Result: %s\n\n", result.ExitReason)
	output += fmt.Sprintf("**Message**: %s\n\n", result.Message)

	output += "### Summary\n"
	output += fmt.Sprintf("- Rounds: %d\n", result.Iterations)
	output += fmt.Sprintf("- Tasks: %d of %d complete\n", result.Stats.TasksCompleted, result.Stats.TasksTotal)
	output += fmt.Sprintf("- Rounds with changes: %d\n", result.Stats.RoundsWithChanges)
	if result.Stats.ValidationFailures > 0 {
		output += fmt.Sprintf("- Validation failures: %d\n", result.Stats.ValidationFailures)
	}
	if result.Stats.CostUSD > 0 {
		output += fmt.Sprintf("- Total cost: $%.4f\n", result.Stats.CostUSD)
	}
	if result.Stats.Elapsed > 0 {
		output += fmt.Sprintf("- Elapsed time: %s\n", result.Stats.Elapsed.Round(time.Second))
	}

	if len(result.Commits) > 0 {
		output += "\n### Commits\n"
		for _, hash := range result.Commits {
			output += fmt.Sprintf("- %s\n", shortHash(hash))
		}
	}

	return output
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// IsTerminal checks if the writer is a terminal.
func IsTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
