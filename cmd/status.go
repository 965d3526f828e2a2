package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loopkit/drover/internal/config"
	"github.com/loopkit/drover/internal/reporter"
	"github.com/loopkit/drover/internal/session"
	"github.com/loopkit/drover/internal/state"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show current status",
		Long:  "Display the session, plan task counts, pause and completion flags, and the latest round record.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigWithFile(workDir, GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	planPath := cfg.Workspace.Plan
	if !filepath.IsAbs(planPath) {
		planPath = filepath.Join(workDir, planPath)
	}

	sessions := session.NewStore(nil, state.SessionFilePath(workDir))
	generator := reporter.NewStatusGenerator(workDir, planPath, sessions)

	status, err := generator.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), reporter.FormatStatus(status))
	return nil
}
