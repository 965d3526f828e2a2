package loop

import (
	"errors"
	"time"

	"github.com/loopkit/drover/internal/classify"
)

// Options configure a single Controller.Run.
type Options struct {
	// Task is the run's task description. May be empty when the plan file
	// carries the work.
	Task string

	// MaxIterations is the starting round budget. The controller grows it
	// when the plan expands mid-run, never past HardCap and never downward.
	MaxIterations int

	// HardCap bounds MaxIterations growth.
	HardCap int

	// Manual pauses the run after every round.
	Manual bool

	// AutoCommit commits working-tree changes after each round.
	AutoCommit bool

	// Push pushes each auto-commit to the origin remote.
	Push bool

	// OpenPR moves the run onto a dedicated branch at start.
	OpenPR bool

	// ValidationEnabled runs the configured check commands each round.
	ValidationEnabled bool

	// WarmupRounds is how many initial rounds skip validation entirely,
	// for greenfield projects whose early output cannot pass checks yet.
	WarmupRounds int

	// CheapChecks run on intermediate rounds; FullChecks run on rounds
	// believed to be final.
	CheapChecks [][]string
	FullChecks  [][]string

	// Policy is the completion policy applied to agent output.
	Policy classify.Policy

	// Breaker configures the failure circuit breaker.
	Breaker BreakerConfig

	// CallsPerHour caps agent invocations inside a sliding hour. Zero or
	// negative disables the limit.
	CallsPerHour int

	// MaxRateWait bounds how long a round waits for a call slot before
	// the run stops with ExitRateLimit.
	MaxRateWait time.Duration

	// CostCeilingUSD stops the run once accumulated spend reaches it.
	// Zero disables the ceiling.
	CostCeilingUSD float64

	// AgentTimeout bounds one agent invocation. Zero means no timeout.
	AgentTimeout time.Duration

	// TokenBudget bounds the prompt size. Zero disables truncation.
	TokenBudget int

	// Resume continues a paused session instead of starting a new one.
	Resume bool

	// OnOutputLine, when set, receives each agent output line as it
	// arrives.
	OnOutputLine func(line string)
}

// DefaultOptions returns the options used when the caller configures
// nothing.
func DefaultOptions() Options {
	return Options{
		MaxIterations:     30,
		HardCap:           100,
		AutoCommit:        true,
		ValidationEnabled: true,
		CallsPerHour:      100,
		MaxRateWait:       60 * time.Second,
		AgentTimeout:      20 * time.Minute,
		TokenBudget:       12000,
		Breaker:           DefaultBreakerConfig(),
	}
}

func (o Options) validate() error {
	if o.MaxIterations < 1 {
		return errors.New("max iterations must be at least 1")
	}
	if o.HardCap < o.MaxIterations {
		return errors.New("hard cap must not be below max iterations")
	}
	if o.WarmupRounds < 0 {
		return errors.New("warmup rounds must not be negative")
	}
	if o.MaxRateWait < 0 {
		return errors.New("max rate wait must not be negative")
	}
	if o.CostCeilingUSD < 0 {
		return errors.New("cost ceiling must not be negative")
	}
	if o.AgentTimeout < 0 {
		return errors.New("agent timeout must not be negative")
	}
	if o.TokenBudget < 0 {
		return errors.New("token budget must not be negative")
	}
	return nil
}
