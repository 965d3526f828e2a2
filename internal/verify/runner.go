package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultMaxOutputSize is the default maximum output size in bytes (1MB).
const DefaultMaxOutputSize = 1024 * 1024

// CommandRunner implements Runner by executing commands as subprocesses in a
// fixed working directory.
type CommandRunner struct {
	workDir         string
	allowedCommands map[string]bool
	maxOutputSize   int
}

// NewCommandRunner creates a CommandRunner for the given working directory.
// If workDir is empty, commands run in the current working directory.
func NewCommandRunner(workDir string) *CommandRunner {
	return &CommandRunner{
		workDir:       workDir,
		maxOutputSize: DefaultMaxOutputSize,
	}
}

// SetAllowedCommands sets the allowlist of commands that can be executed.
// If set, only commands whose base name is in the list will run. If empty,
// all commands are allowed.
func (r *CommandRunner) SetAllowedCommands(commands []string) {
	if len(commands) == 0 {
		r.allowedCommands = nil
		return
	}
	r.allowedCommands = make(map[string]bool, len(commands))
	for _, cmd := range commands {
		r.allowedCommands[cmd] = true
	}
}

// SetMaxOutputSize sets the maximum captured output size in bytes.
func (r *CommandRunner) SetMaxOutputSize(size int) {
	r.maxOutputSize = size
}

// Run executes the given commands in order and stops at the first failure;
// later commands in the batch are not run. Results cover only the commands
// that actually ran.
func (r *CommandRunner) Run(ctx context.Context, commands [][]string) ([]Result, error) {
	if ctx == nil {
		return nil, errors.New("context cannot be nil")
	}

	results := make([]Result, 0, len(commands))

	for _, cmdArgs := range commands {
		result := r.runCommand(ctx, cmdArgs)
		results = append(results, result)
		if !result.Passed {
			break
		}
	}

	return results, nil
}

// runCommand executes a single command and returns the result.
func (r *CommandRunner) runCommand(ctx context.Context, cmdArgs []string) Result {
	start := time.Now()

	if len(cmdArgs) == 0 {
		return Result{
			Passed:   false,
			Command:  cmdArgs,
			Output:   "error: empty command",
			Duration: time.Since(start),
		}
	}

	baseName := cmdArgs[0]

	if r.allowedCommands != nil {
		if !r.allowedCommands[baseName] {
			return Result{
				Passed:   false,
				Command:  cmdArgs,
				Output:   fmt.Sprintf("error: command %q is not allowed", baseName),
				Duration: time.Since(start),
			}
		}
	}

	cmd := exec.CommandContext(ctx, baseName, cmdArgs[1:]...)
	if r.workDir != "" {
		cmd.Dir = r.workDir
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	duration := time.Since(start)

	return Result{
		Passed:   err == nil,
		Command:  cmdArgs,
		Output:   r.truncateOutput(output.String()),
		Duration: duration,
	}
}

// truncateOutput truncates the output if it exceeds maxOutputSize.
func (r *CommandRunner) truncateOutput(output string) string {
	if r.maxOutputSize <= 0 || len(output) <= r.maxOutputSize {
		return output
	}
	return output[:r.maxOutputSize] + "\n... [output truncated]"
}

// Ensure CommandRunner implements Runner.
var _ Runner = (*CommandRunner)(nil)
