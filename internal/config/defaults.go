package config

// Workspace defaults
const (
	DefaultRoot     = "."
	DefaultPlanFile = "PLAN.md"
)

// Agent defaults
const (
	DefaultAgentCommand        = "claude"
	DefaultAgentTimeoutMinutes = 20
)

// Loop defaults
const (
	DefaultMaxIterations = 30
	DefaultHardCap       = 100
	DefaultTokenBudget   = 12000
)

// Circuit breaker defaults
const (
	DefaultMaxConsecutiveFailures = 3
	DefaultMaxDistinctSignatures  = 5
)

// Limit defaults
const (
	DefaultCallsPerHour       = 100
	DefaultMaxRateWaitSeconds = 60
)

// Git defaults
const (
	DefaultBranchPrefix = "drover/"
)
