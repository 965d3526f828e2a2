package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// bufferSize is the initial scanner buffer size (64KB).
const bufferSize = 64 * 1024

// maxLineSize is the maximum size of a single output line (10MB).
const maxLineSize = 10 * 1024 * 1024

// pipeWaitDelay bounds how long a cancelled invocation waits for agent
// descendants holding the output pipe before it is force-closed.
const pipeWaitDelay = 2 * time.Second

// CLIOptions configures the subprocess adapter.
type CLIOptions struct {
	// Command is the agent binary (e.g. "claude" or "/usr/local/bin/agent").
	Command string

	// Args are fixed arguments placed before the prompt.
	Args []string

	// PromptOnStdin pipes the prompt to stdin instead of appending it as
	// the final argument.
	PromptOnStdin bool

	// Env contains environment variables set for every invocation.
	Env map[string]string
}

// CLI executes the agent as a subprocess, streaming its output line by line.
type CLI struct {
	opts CLIOptions

	// availability is resolved once per adapter instance.
	checked   bool
	available bool
}

// NewCLI creates a subprocess adapter with the given options.
func NewCLI(opts CLIOptions) *CLI {
	return &CLI{opts: opts}
}

// Available reports whether the agent command can be resolved. The lookup
// runs once and is remembered for the lifetime of the adapter.
func (c *CLI) Available() bool {
	if !c.checked {
		_, err := exec.LookPath(c.opts.Command)
		c.available = err == nil
		c.checked = true
	}
	return c.available
}

// Command returns the configured agent binary name.
func (c *CLI) Command() string {
	return c.opts.Command
}

// Invoke runs the agent with the given request. Non-zero exits yield a
// Response; errors cover spawn failures, output read failures, and timeouts.
// On timeout the output captured so far is returned with the error.
func (c *CLI) Invoke(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	argv := append([]string{}, c.opts.Args...)
	if !c.opts.PromptOnStdin {
		argv = append(argv, req.Prompt)
	}

	cmd := exec.CommandContext(ctx, c.opts.Command, argv...)
	cmd.Dir = req.WorkDir
	cmd.WaitDelay = pipeWaitDelay

	if len(c.opts.Env) > 0 || len(req.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.opts.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		for k, v := range req.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	if c.opts.PromptOnStdin {
		cmd.Stdin = strings.NewReader(req.Prompt)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start agent %s: %w", c.opts.Command, err)
	}

	var output strings.Builder
	var costUSD float64

	scanner := bufio.NewScanner(stdoutPipe)
	scanner.Buffer(make([]byte, bufferSize), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		output.WriteString(line)
		output.WriteByte('\n')

		if cost, ok := extractCost(line); ok {
			costUSD = cost
		}
		if req.OnOutputLine != nil {
			req.OnOutputLine(line)
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()

	resp := &Response{
		Output:   output.String(),
		CostUSD:  costUSD,
		Duration: time.Since(start),
	}
	if stderr := strings.TrimSpace(stderrBuf.String()); stderr != "" {
		if resp.Output != "" {
			resp.Output += "\n"
		}
		resp.Output += stderr
	}

	if ctx.Err() != nil {
		return resp, fmt.Errorf("agent run aborted: %w", ctx.Err())
	}
	if scanErr != nil {
		return nil, fmt.Errorf("failed to read agent output: %w", scanErr)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			resp.ExitCode = exitErr.ExitCode()
			return resp, nil
		}
		return nil, fmt.Errorf("agent execution failed: %w", waitErr)
	}

	return resp, nil
}

// resultLine matches the trailing JSON result event agents emit when running
// in NDJSON mode.
type resultLine struct {
	Type         string  `json:"type"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// extractCost pulls a cost figure out of a single output line, best-effort.
func extractCost(line string) (float64, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return 0, false
	}

	var res resultLine
	if err := json.Unmarshal([]byte(trimmed), &res); err != nil {
		return 0, false
	}
	if res.Type != "result" || res.TotalCostUSD <= 0 {
		return 0, false
	}
	return res.TotalCostUSD, true
}
