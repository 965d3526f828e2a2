package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loopkit/drover/internal/config"
	"github.com/loopkit/drover/internal/git"
	"github.com/loopkit/drover/internal/reporter"
	"github.com/loopkit/drover/internal/session"
	"github.com/loopkit/drover/internal/state"
)

func newReportCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the recorded rounds",
		Long:  "Aggregate the per-round records into a run report: verdicts, commits, cost, and duration.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the report to a file instead of stdout")

	return cmd
}

func runReport(cmd *cobra.Command, outputPath string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigWithFile(workDir, GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sessions := session.NewStore(nil, state.SessionFilePath(workDir))
	gitManager := git.NewShellManager(workDir, cfg.Git.BranchPrefix)
	generator := reporter.NewReportGenerator(state.LogsDirPath(workDir), sessions, gitManager)

	report, err := generator.GenerateReport(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	formatted := reporter.FormatReport(report)

	if outputPath == "" {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), formatted)
		return nil
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, []byte(formatted), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", outputPath)
	return nil
}
