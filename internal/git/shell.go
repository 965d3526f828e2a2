package git

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// ShellManager implements the Manager interface by shelling out to git.
type ShellManager struct {
	workDir      string
	branchPrefix string
}

// NewShellManager creates a ShellManager for the given working directory.
// The branch prefix is prepended to branch names passed to EnsureBranch
// (e.g. "drover/" creates branches like "drover/csv-importer").
func NewShellManager(workDir, branchPrefix string) *ShellManager {
	return &ShellManager{
		workDir:      workDir,
		branchPrefix: branchPrefix,
	}
}

// runGit executes a git command and returns the trimmed stdout.
func (m *ShellManager) runGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = m.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		stderrStr := stderr.String()
		stderrLower := strings.ToLower(stderrStr)

		if strings.Contains(stderrLower, "not a git repository") {
			return "", &GitError{
				Command: "git " + strings.Join(args, " "),
				Output:  stderrStr,
				Err:     ErrNotAGitRepo,
			}
		}

		// An empty repo (no commits yet) makes HEAD unresolvable.
		if strings.Contains(stderrLower, "ambiguous argument 'head'") ||
			strings.Contains(stderrLower, "unknown revision") {
			return "", &GitError{
				Command: "git " + strings.Join(args, " "),
				Output:  stderrStr,
				Err:     ErrNoCommits,
			}
		}

		return "", &GitError{
			Command: "git " + strings.Join(args, " "),
			Output:  stderrStr,
			Err:     err,
		}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// IsRepo reports whether the working directory is inside a git repository.
func (m *ShellManager) IsRepo(ctx context.Context) bool {
	_, err := m.runGit(ctx, "rev-parse", "--git-dir")
	return err == nil
}

// GetCurrentBranch returns the name of the current branch.
func (m *ShellManager) GetCurrentBranch(ctx context.Context) (string, error) {
	return m.runGit(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// getCurrentBranchSymbolic returns the current branch using symbolic-ref.
// This works even in empty repos with no commits.
func (m *ShellManager) getCurrentBranchSymbolic(ctx context.Context) (string, error) {
	return m.runGit(ctx, "symbolic-ref", "--short", "HEAD")
}

// GetCurrentCommit returns the current HEAD commit hash.
func (m *ShellManager) GetCurrentCommit(ctx context.Context) (string, error) {
	return m.runGit(ctx, "rev-parse", "HEAD")
}

// HasChanges returns true if there are uncommitted changes in the working
// tree, including staged changes, unstaged changes, and untracked files.
func (m *ShellManager) HasChanges(ctx context.Context) (bool, error) {
	output, err := m.runGit(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return output != "", nil
}

// GetChangedFiles returns the files with uncommitted changes, including
// staged, unstaged, and untracked files.
func (m *ShellManager) GetChangedFiles(ctx context.Context) ([]string, error) {
	output, err := m.runGit(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}

	if output == "" {
		return nil, nil
	}

	var files []string
	for _, line := range strings.Split(output, "\n") {
		if len(line) > 3 {
			// Format is "XY filename" where XY is the status prefix.
			file := strings.TrimSpace(line[2:])
			// Renamed files show as "old -> new".
			if idx := strings.Index(file, " -> "); idx != -1 {
				file = file[idx+4:]
			}
			files = append(files, file)
		}
	}

	return files, nil
}

// Commit stages all changes and creates a commit with the given message,
// returning the new commit hash.
func (m *ShellManager) Commit(ctx context.Context, message string) (string, error) {
	hasChanges, err := m.HasChanges(ctx)
	if err != nil {
		return "", err
	}
	if !hasChanges {
		return "", &GitError{
			Command: "git commit",
			Output:  "nothing to commit, working tree clean",
			Err:     ErrNoChanges,
		}
	}

	if _, err = m.runGit(ctx, "add", "-A"); err != nil {
		return "", err
	}

	if _, err = m.runGit(ctx, "commit", "-m", message); err != nil {
		return "", &GitError{
			Command: "git commit",
			Output:  err.Error(),
			Err:     ErrCommitFailed,
		}
	}

	return m.GetCurrentCommit(ctx)
}

// EnsureBranch ensures a branch exists and switches to it. The branch name
// is prefixed with the configured branch prefix. Handles empty repos (no
// commits) gracefully.
func (m *ShellManager) EnsureBranch(ctx context.Context, branchName string) error {
	fullBranchName := m.branchPrefix + branchName

	currentBranch, err := m.GetCurrentBranch(ctx)
	if err != nil {
		// In a repo with no commits, fall back to symbolic-ref.
		if errors.Is(err, ErrNoCommits) {
			currentBranch, err = m.getCurrentBranchSymbolic(ctx)
			if err != nil {
				return err
			}
			if currentBranch == fullBranchName {
				return nil
			}
			_, err = m.runGit(ctx, "checkout", "-b", fullBranchName)
			return err
		}
		return err
	}
	if currentBranch == fullBranchName {
		return nil
	}

	if _, err = m.runGit(ctx, "rev-parse", "--verify", fullBranchName); err == nil {
		_, err = m.runGit(ctx, "checkout", fullBranchName)
		return err
	}

	_, err = m.runGit(ctx, "checkout", "-b", fullBranchName)
	return err
}

// GetCommitMessage returns the full commit message for a hash.
func (m *ShellManager) GetCommitMessage(ctx context.Context, hash string) (string, error) {
	return m.runGit(ctx, "log", "-1", "--pretty=%B", hash)
}

// Push pushes the current branch to origin, setting upstream.
func (m *ShellManager) Push(ctx context.Context) error {
	_, err := m.runGit(ctx, "push", "--set-upstream", "origin", "HEAD")
	return err
}

// Ensure ShellManager implements Manager.
var _ Manager = (*ShellManager)(nil)
