package loop

import "time"

// ExitReason identifies why a run stopped.
type ExitReason string

const (
	// ExitCompleted means the agent's output classified as done and the
	// round it happened in produced (or had already produced) real work.
	ExitCompleted ExitReason = "completed"
	// ExitMaxIterations means the round budget ran out with work remaining.
	ExitMaxIterations ExitReason = "max_iterations"
	// ExitBlocked means the agent reported it cannot proceed without help.
	ExitBlocked ExitReason = "blocked"
	// ExitCircuitBreaker means repeated failures tripped the breaker.
	ExitCircuitBreaker ExitReason = "circuit_breaker"
	// ExitRateLimit means a round could not acquire a call slot within the
	// configured wait.
	ExitRateLimit ExitReason = "rate_limit"
	// ExitCostCeiling means accumulated agent spend reached the ceiling.
	ExitCostCeiling ExitReason = "cost_ceiling"
	// ExitFileSignal means completion was detected from the workspace
	// (sentinel file or fully checked-off plan) rather than agent output.
	ExitFileSignal ExitReason = "file_signal"
	// ExitPaused means the run stopped cooperatively and can be resumed.
	ExitPaused ExitReason = "paused"
)

var validExitReasons = map[ExitReason]bool{
	ExitCompleted:      true,
	ExitMaxIterations:  true,
	ExitBlocked:        true,
	ExitCircuitBreaker: true,
	ExitRateLimit:      true,
	ExitCostCeiling:    true,
	ExitFileSignal:     true,
	ExitPaused:         true,
}

// IsValid returns true if the exit reason is one of the known values.
func (r ExitReason) IsValid() bool {
	return validExitReasons[r]
}

// Success reports whether the reason represents a finished run rather than
// an interrupted or failed one.
func (r ExitReason) Success() bool {
	return r == ExitCompleted || r == ExitFileSignal
}

// Stats aggregates counters across all rounds of a run.
type Stats struct {
	TasksTotal         int           `json:"tasks_total"`
	TasksCompleted     int           `json:"tasks_completed"`
	RoundsWithChanges  int           `json:"rounds_with_changes"`
	ValidationFailures int           `json:"validation_failures"`
	CostUSD            float64       `json:"cost_usd"`
	Elapsed            time.Duration `json:"elapsed"`
}

// Result is the outcome of a Controller.Run call.
type Result struct {
	Success    bool
	ExitReason ExitReason
	Message    string
	Iterations int
	Commits    []string
	Stats      Stats
}
