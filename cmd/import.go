package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/loopkit/drover/internal/config"
	"github.com/loopkit/drover/internal/plan"
)

func newImportCmd() *cobra.Command {
	var planPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "import <tasks.yaml>",
		Short: "Convert a YAML task list into the plan",
		Long: `Convert a YAML task list into the markdown plan the loop works from.

The file needs a 'tasks' array; each task has a name, an optional done
flag, and optional subtasks. Tasks with subtasks become '### Task N:'
sections, otherwise the plan is a flat checkbox list.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], planPath, force)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "destination plan file (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing plan file")

	return cmd
}

func runImport(cmd *cobra.Command, yamlPath, planPath string, force bool) error {
	workDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	if planPath == "" {
		cfg, err := config.LoadConfigWithFile(workDir, GetConfigFile())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		planPath = cfg.Workspace.Plan
	}
	if !filepath.IsAbs(planPath) {
		planPath = filepath.Join(workDir, planPath)
	}

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", yamlPath, err)
	}

	markdown, err := plan.ImportYAML(data)
	if err != nil {
		return fmt.Errorf("failed to import tasks: %w", err)
	}

	if !force {
		if _, err := os.Stat(planPath); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", planPath)
		}
	}

	if err := os.WriteFile(planPath, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}

	snapshot := plan.Parse(markdown)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d tasks into %s\n", snapshot.Total, planPath)
	return nil
}
