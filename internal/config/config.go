// Package config loads drover configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all drover configuration.
type Config struct {
	Workspace  WorkspaceConfig  `mapstructure:"workspace"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Loop       LoopConfig       `mapstructure:"loop"`
	Completion CompletionConfig `mapstructure:"completion"`
	Validation ValidationConfig `mapstructure:"validation"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	Git        GitConfig        `mapstructure:"git"`
}

// WorkspaceConfig holds working-directory settings.
type WorkspaceConfig struct {
	Root string `mapstructure:"root" validate:"required"`
	Plan string `mapstructure:"plan" validate:"required"`
}

// AgentConfig holds agent subprocess settings.
type AgentConfig struct {
	Command        string            `mapstructure:"command" validate:"required"`
	Args           []string          `mapstructure:"args"`
	PromptOnStdin  bool              `mapstructure:"prompt_on_stdin"`
	TimeoutMinutes int               `mapstructure:"timeout_minutes" validate:"min=0"`
	Env            map[string]string `mapstructure:"env"`
}

// LoopConfig holds iteration loop settings.
type LoopConfig struct {
	MaxIterations int  `mapstructure:"max_iterations" validate:"min=1"`
	HardCap       int  `mapstructure:"hard_cap" validate:"min=1,gtefield=MaxIterations"`
	WarmupRounds  int  `mapstructure:"warmup_rounds" validate:"min=0"`
	Manual        bool `mapstructure:"manual"`
	TokenBudget   int  `mapstructure:"token_budget" validate:"min=0"`
}

// CompletionConfig holds the completion detection policy.
type CompletionConfig struct {
	Token             string `mapstructure:"token"`
	RequireExitSignal bool   `mapstructure:"require_exit_signal"`
	MinIndicators     int    `mapstructure:"min_indicators" validate:"min=0"`
}

// ValidationConfig holds validation command settings.
type ValidationConfig struct {
	Enabled     bool       `mapstructure:"enabled"`
	CheapChecks [][]string `mapstructure:"cheap_checks"`
	FullChecks  [][]string `mapstructure:"full_checks"`
}

// BreakerConfig holds circuit breaker thresholds. Zero disables a condition.
type BreakerConfig struct {
	MaxConsecutiveFailures int `mapstructure:"max_consecutive_failures" validate:"min=0"`
	MaxDistinctSignatures  int `mapstructure:"max_distinct_signatures" validate:"min=0"`
}

// LimitsConfig holds call-rate and spend limits. Zero means unlimited.
type LimitsConfig struct {
	CallsPerHour       int     `mapstructure:"calls_per_hour" validate:"min=0"`
	MaxRateWaitSeconds int     `mapstructure:"max_rate_wait_seconds" validate:"min=0"`
	CostCeilingUSD     float64 `mapstructure:"cost_ceiling_usd" validate:"min=0"`
}

// GitConfig holds commit and branch settings.
type GitConfig struct {
	AutoCommit   bool   `mapstructure:"auto_commit"`
	Push         bool   `mapstructure:"push"`
	OpenPR       bool   `mapstructure:"open_pr"`
	BranchPrefix string `mapstructure:"branch_prefix" validate:"required"`
}

var validate = validator.New()

// LoadConfigWithFile loads configuration from a specific file if provided,
// otherwise falls back to LoadConfig with the working directory.
func LoadConfigWithFile(workDir, configFile string) (*Config, error) {
	if configFile != "" {
		return LoadConfigFromPath(configFile)
	}
	return LoadConfig(workDir)
}

// LoadConfig loads configuration from drover.yaml in the given directory,
// falling back to the global config file and then to defaults. DROVER_*
// environment variables override file values.
func LoadConfig(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName("drover")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No workdir config; use the global one when it exists.
		if global, gerr := GlobalConfigPath(); gerr == nil {
			if _, serr := os.Stat(global); serr == nil {
				v.SetConfigFile(global)
				if rerr := v.ReadInConfig(); rerr != nil {
					return nil, fmt.Errorf("failed to read config: %w", rerr)
				}
			}
		}
	}

	return finalize(v)
}

// LoadConfigFromPath loads configuration from a specific file path. A missing
// file yields the defaults.
func LoadConfigFromPath(configPath string) (*Config, error) {
	v := newViper()

	if _, err := os.Stat(configPath); err != nil {
		if os.IsNotExist(err) {
			return finalize(v)
		}
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return finalize(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DROVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func finalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults sets all default values for configuration.
func setDefaults(v *viper.Viper) {
	// Workspace defaults
	v.SetDefault("workspace.root", DefaultRoot)
	v.SetDefault("workspace.plan", DefaultPlanFile)

	// Agent defaults
	v.SetDefault("agent.command", DefaultAgentCommand)
	v.SetDefault("agent.args", []string{})
	v.SetDefault("agent.prompt_on_stdin", false)
	v.SetDefault("agent.timeout_minutes", DefaultAgentTimeoutMinutes)

	// Loop defaults
	v.SetDefault("loop.max_iterations", DefaultMaxIterations)
	v.SetDefault("loop.hard_cap", DefaultHardCap)
	v.SetDefault("loop.warmup_rounds", 0)
	v.SetDefault("loop.manual", false)
	v.SetDefault("loop.token_budget", DefaultTokenBudget)

	// Completion defaults
	v.SetDefault("completion.token", "")
	v.SetDefault("completion.require_exit_signal", false)
	v.SetDefault("completion.min_indicators", 0)

	// Validation defaults (no commands by default)
	v.SetDefault("validation.enabled", true)
	v.SetDefault("validation.cheap_checks", [][]string{})
	v.SetDefault("validation.full_checks", [][]string{})

	// Breaker defaults
	v.SetDefault("breaker.max_consecutive_failures", DefaultMaxConsecutiveFailures)
	v.SetDefault("breaker.max_distinct_signatures", DefaultMaxDistinctSignatures)

	// Limits defaults
	v.SetDefault("limits.calls_per_hour", DefaultCallsPerHour)
	v.SetDefault("limits.max_rate_wait_seconds", DefaultMaxRateWaitSeconds)
	v.SetDefault("limits.cost_ceiling_usd", 0.0)

	// Git defaults
	v.SetDefault("git.auto_commit", true)
	v.SetDefault("git.push", false)
	v.SetDefault("git.open_pr", false)
	v.SetDefault("git.branch_prefix", DefaultBranchPrefix)
}
