// Package git provides the Git operations used for round commits.
package git

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common Git failures.
var (
	// ErrNotAGitRepo indicates the directory is not a git repository.
	ErrNotAGitRepo = errors.New("not a git repository")

	// ErrNoChanges indicates there are no changes to commit.
	ErrNoChanges = errors.New("no changes to commit")

	// ErrNoCommits indicates the repository has no commits yet.
	ErrNoCommits = errors.New("repository has no commits")

	// ErrCommitFailed indicates the commit operation failed.
	ErrCommitFailed = errors.New("commit failed")
)

// GitError represents a Git command error with additional context.
type GitError struct {
	// Command is the git command that failed.
	Command string
	// Output is the stderr/stdout output from the command.
	Output string
	// Err is the underlying error (typically a sentinel error).
	Err error
}

// Error returns a formatted error message.
func (e *GitError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("git command %q failed: %s", e.Command, e.Output)
	}
	return fmt.Sprintf("git command %q failed", e.Command)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *GitError) Unwrap() error {
	return e.Err
}

// Manager defines the Git operations the controller relies on.
type Manager interface {
	// IsRepo reports whether the working directory is inside a git
	// repository.
	IsRepo(ctx context.Context) bool

	// GetCurrentBranch returns the name of the current branch.
	GetCurrentBranch(ctx context.Context) (string, error)

	// GetCurrentCommit returns the current HEAD commit hash. Returns
	// ErrNoCommits in a repository with no commits.
	GetCurrentCommit(ctx context.Context) (string, error)

	// HasChanges returns true if there are uncommitted changes in the
	// working tree, including untracked files.
	HasChanges(ctx context.Context) (bool, error)

	// GetChangedFiles returns the files with uncommitted changes.
	GetChangedFiles(ctx context.Context) ([]string, error)

	// EnsureBranch ensures a branch exists and switches to it, creating it
	// when missing.
	EnsureBranch(ctx context.Context, branchName string) error

	// Commit stages all changes and creates a commit with the given
	// message, returning the commit hash. Returns ErrNoChanges when the
	// working tree is clean.
	Commit(ctx context.Context, message string) (string, error)

	// GetCommitMessage returns the full commit message for a hash.
	GetCommitMessage(ctx context.Context, hash string) (string, error)

	// Push pushes the current branch to origin, setting upstream.
	Push(ctx context.Context) error
}
