// Package verify runs validation command batches against the working tree.
package verify

import (
	"context"
	"time"
)

// Result contains the outcome of running a single validation command.
type Result struct {
	// Passed indicates whether the command exited successfully (exit code 0).
	Passed bool `json:"passed"`

	// Command is the command that was executed (e.g., ["go", "test", "./..."]).
	Command []string `json:"command"`

	// Output is the combined stdout/stderr output from the command.
	Output string `json:"output"`

	// Duration is how long the command took to execute.
	Duration time.Duration `json:"duration"`
}

// Failed reports whether any result in the batch did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

// FirstFailure returns the first failed result, or nil when all passed.
func FirstFailure(results []Result) *Result {
	for i := range results {
		if !results[i].Passed {
			return &results[i]
		}
	}
	return nil
}

// Runner executes validation commands sequentially, stopping at the first
// failure within a batch.
type Runner interface {
	Run(ctx context.Context, commands [][]string) ([]Result, error)
}
