// Package agent invokes the external code-generation agent.
package agent

import (
	"context"
	"time"
)

// Request contains the parameters for one agent invocation.
type Request struct {
	// Prompt is the full round prompt handed to the agent.
	Prompt string

	// WorkDir is the working directory for the agent process.
	WorkDir string

	// Timeout bounds the invocation. Zero means no timeout.
	Timeout time.Duration

	// Env contains additional environment variables for the process.
	Env map[string]string

	// OnOutputLine is called for each output line as it streams, when set.
	OnOutputLine func(line string)
}

// Response contains the results of one agent invocation.
type Response struct {
	// ExitCode is the agent process exit code. Non-zero exits are reported
	// here rather than as errors so the caller can classify the output.
	ExitCode int

	// Output is the combined stdout and stderr text.
	Output string

	// CostUSD is the best-effort cost extracted from the agent's output,
	// zero when the agent does not report one.
	CostUSD float64

	// Duration is the wall-clock time of the invocation.
	Duration time.Duration
}

// Agent runs one round of the external agent. Implementations handle process
// execution, output streaming, and cost extraction.
type Agent interface {
	// Invoke runs the agent with the given request. Errors are reserved for
	// invocation failures (spawn errors, timeouts); an agent that runs and
	// exits non-zero still yields a Response. On timeout the partial
	// response captured so far is returned alongside the error.
	Invoke(ctx context.Context, req Request) (*Response, error)
}
