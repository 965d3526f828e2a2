package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopkit/drover/internal/config"
	"github.com/loopkit/drover/internal/loop"
	"github.com/loopkit/drover/internal/runner"
)

type runFlags struct {
	maxIterations int
	warmup        int
	manual        bool
	resume        bool
	commit        bool
	push          bool
	pr            bool
	validate      bool
	callsPerHour  int
	costCeiling   float64
	token         string
	requireExit   bool
	minIndicators int
	task          string
	plan          string
	stream        bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the iteration loop",
		Long:  "Drive the agent through rounds until the plan is complete, the run is unrecoverable, or a budget runs out.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, flags)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&flags.maxIterations, "max-iterations", "n", 0, "maximum rounds (0 uses config)")
	f.IntVar(&flags.warmup, "warmup", 0, "initial rounds that skip validation")
	f.BoolVar(&flags.manual, "manual", false, "pause after every round")
	f.BoolVar(&flags.resume, "resume", false, "continue a paused session")
	f.BoolVar(&flags.commit, "commit", true, "auto-commit round changes")
	f.BoolVar(&flags.push, "push", false, "push each auto-commit to origin")
	f.BoolVar(&flags.pr, "pr", false, "work on a dedicated branch for a pull request")
	f.BoolVar(&flags.validate, "validate", true, "run validation checks each round")
	f.IntVar(&flags.callsPerHour, "calls-per-hour", 0, "agent call cap inside a sliding hour (0 unlimited)")
	f.Float64Var(&flags.costCeiling, "cost-ceiling", 0, "stop once accumulated cost reaches this USD amount (0 unlimited)")
	f.StringVar(&flags.token, "token", "", "completion token the agent must emit")
	f.BoolVar(&flags.requireExit, "require-exit-signal", false, "require the exit signal in addition to the token")
	f.IntVar(&flags.minIndicators, "min-indicators", 0, "completion phrases needed without an explicit token")
	f.StringVarP(&flags.task, "task", "t", "", "task description for the run")
	f.StringVar(&flags.plan, "plan", "", "plan file path (default from config)")
	f.BoolVar(&flags.stream, "stream", false, "stream agent output (default: on when stdout is a terminal)")

	return cmd
}

func runRun(cmd *cobra.Command, flags runFlags) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigWithFile(workDir, GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	loopOpts := runner.OptionsFromConfig(cfg)
	applyRunFlags(cmd, &loopOpts, flags)

	stream := flags.stream
	if !cmd.Flags().Changed("stream") {
		stream = runner.IsTerminal(cmd.OutOrStdout())
	}

	opts := runner.Options{
		Loop:     loopOpts,
		PlanPath: flags.plan,
		Stream:   stream,
	}

	result, err := runner.Run(cmd.Context(), workDir, cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("run ended without completing: %s", result.Message)
	}
	return nil
}

// applyRunFlags overrides config-derived options with explicitly set flags.
// Unset flags leave the config values alone.
func applyRunFlags(cmd *cobra.Command, opts *loop.Options, flags runFlags) {
	changed := cmd.Flags().Changed

	if changed("max-iterations") {
		opts.MaxIterations = flags.maxIterations
		if opts.HardCap < opts.MaxIterations {
			opts.HardCap = opts.MaxIterations
		}
	}
	if changed("warmup") {
		opts.WarmupRounds = flags.warmup
	}
	if changed("manual") {
		opts.Manual = flags.manual
	}
	if changed("commit") {
		opts.AutoCommit = flags.commit
	}
	if changed("push") {
		opts.Push = flags.push
	}
	if changed("pr") {
		opts.OpenPR = flags.pr
	}
	if changed("validate") {
		opts.ValidationEnabled = flags.validate
	}
	if changed("calls-per-hour") {
		opts.CallsPerHour = flags.callsPerHour
	}
	if changed("cost-ceiling") {
		opts.CostCeilingUSD = flags.costCeiling
	}
	if changed("token") {
		opts.Policy.Token = flags.token
	}
	if changed("require-exit-signal") {
		opts.Policy.RequireExitSignal = flags.requireExit
	}
	if changed("min-indicators") {
		opts.Policy.MinIndicators = flags.minIndicators
	}
	if flags.task != "" {
		opts.Task = flags.task
	}
	opts.Resume = flags.resume
}
