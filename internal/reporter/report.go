package reporter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/loopkit/drover/internal/git"
	"github.com/loopkit/drover/internal/loop"
	"github.com/loopkit/drover/internal/session"
)

// CommitInfo describes one auto-commit produced by a round.
type CommitInfo struct {
	// Hash is the full commit hash.
	Hash string

	// Subject is the commit subject line without the type prefix.
	Subject string

	// Type is the conventional commit type, empty when the message does not
	// follow the convention.
	Type git.CommitType

	// Round is the 1-based round number that produced the commit.
	Round int
}

// Report is the end-of-run summary aggregated from the round records.
type Report struct {
	// Task is the task description from the session, if one exists.
	Task string

	// TotalRounds is the number of round records found.
	TotalRounds int

	// RoundsWithChanges counts rounds that modified the working tree.
	RoundsWithChanges int

	// ValidationFailures counts rounds whose validation step failed.
	ValidationFailures int

	// Verdicts holds the per-verdict round counts.
	Verdicts map[string]int

	// Commits lists the auto-commits in round order.
	Commits []CommitInfo

	// TotalCostUSD is the summed agent cost across rounds.
	TotalCostUSD float64

	// StartTime is when the first round started.
	StartTime time.Time

	// EndTime is when the last round finished.
	EndTime time.Time

	// TotalDuration spans the first round start to the last round end.
	TotalDuration time.Duration
}

// commitTypeOrder fixes the display order of the commit-type breakdown.
var commitTypeOrder = []git.CommitType{
	git.CommitTypeFeat,
	git.CommitTypeFix,
	git.CommitTypeChore,
	git.CommitTypeDocs,
	git.CommitTypeTest,
}

// ReportGenerator aggregates round records into a Report.
type ReportGenerator struct {
	logsDir    string
	sessions   *session.Store
	gitManager git.Manager
}

// NewReportGenerator creates a report generator. The git manager is used to
// resolve commit messages and may be nil.
func NewReportGenerator(logsDir string, sessions *session.Store, gitManager git.Manager) *ReportGenerator {
	return &ReportGenerator{
		logsDir:    logsDir,
		sessions:   sessions,
		gitManager: gitManager,
	}
}

// GenerateReport reads every round record under the logs directory and folds
// it into a Report. Records that fail to parse are skipped.
func (g *ReportGenerator) GenerateReport(ctx context.Context) (*Report, error) {
	report := &Report{Verdicts: make(map[string]int)}

	if g.sessions != nil {
		if sess, err := g.sessions.Load(); err == nil {
			report.Task = sess.Task
		}
	}

	paths, err := loop.ListRecordPaths(g.logsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list round records: %w", err)
	}

	for _, path := range paths {
		record, err := loop.LoadRecord(path)
		if err != nil {
			continue
		}

		report.TotalRounds++
		report.TotalCostUSD += record.CostUSD
		if record.Verdict != "" {
			report.Verdicts[record.Verdict]++
		}
		if record.FilesChanged {
			report.RoundsWithChanges++
		}
		if record.Validation != nil && !record.Validation.Passed {
			report.ValidationFailures++
		}

		if record.Committed && record.CommitHash != "" {
			report.Commits = append(report.Commits, g.commitInfo(ctx, record))
		}

		if report.StartTime.IsZero() || record.StartedAt.Before(report.StartTime) {
			report.StartTime = record.StartedAt
		}
		if record.EndedAt.After(report.EndTime) {
			report.EndTime = record.EndedAt
		}
	}

	if !report.StartTime.IsZero() && !report.EndTime.IsZero() {
		report.TotalDuration = report.EndTime.Sub(report.StartTime)
	}

	return report, nil
}

// commitInfo resolves the commit message for a round's commit. A failed
// lookup degrades to hash-only info rather than failing the report.
func (g *ReportGenerator) commitInfo(ctx context.Context, record *loop.IterationRecord) CommitInfo {
	info := CommitInfo{
		Hash:  record.CommitHash,
		Round: record.Index,
	}

	if g.gitManager == nil {
		return info
	}

	msg, err := g.gitManager.GetCommitMessage(ctx, record.CommitHash)
	if err != nil {
		return info
	}

	ctype, subject, _ := git.ParseConventionalCommit(msg)
	if ctype == "" {
		// Non-conventional message: keep the first line as the subject.
		info.Subject = strings.SplitN(msg, "\n", 2)[0]
		return info
	}

	info.Type = ctype
	info.Subject = subject
	return info
}

// FormatReport formats a report for CLI display.
func FormatReport(report *Report) string {
	var sb strings.Builder

	sb.WriteString("# Run Report\n\n")

	if report.Task != "" {
		_, _ = fmt.Fprintf(&sb, "**Task:** %s\n\n", report.Task)
	}

	sb.WriteString("## Summary\n\n")
	_, _ = fmt.Fprintf(&sb, "- **Rounds:** %d\n", report.TotalRounds)
	_, _ = fmt.Fprintf(&sb, "- **Rounds with changes:** %d\n", report.RoundsWithChanges)
	if report.ValidationFailures > 0 {
		_, _ = fmt.Fprintf(&sb, "- **Validation failures:** %d\n", report.ValidationFailures)
	}
	if report.TotalCostUSD > 0 {
		_, _ = fmt.Fprintf(&sb, "- **Total cost:** $%.4f\n", report.TotalCostUSD)
	}
	if report.TotalDuration > 0 {
		_, _ = fmt.Fprintf(&sb, "- **Duration:** %s\n", formatDuration(report.TotalDuration))
	}
	if !report.StartTime.IsZero() {
		_, _ = fmt.Fprintf(&sb, "- **Started:** %s\n", report.StartTime.Format(time.RFC3339))
	}
	if !report.EndTime.IsZero() {
		_, _ = fmt.Fprintf(&sb, "- **Finished:** %s\n", report.EndTime.Format(time.RFC3339))
	}
	sb.WriteString("\n")

	if len(report.Verdicts) > 0 {
		sb.WriteString("## Verdicts\n\n")
		for _, verdict := range verdictOrder(report.Verdicts) {
			_, _ = fmt.Fprintf(&sb, "- %s: %d\n", verdict, report.Verdicts[verdict])
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Commits\n\n")
	if len(report.Commits) == 0 {
		sb.WriteString("No commits produced.\n")
	} else {
		for _, commit := range report.Commits {
			hash := commit.Hash
			if len(hash) > 8 {
				hash = hash[:8]
			}
			if commit.Subject != "" {
				_, _ = fmt.Fprintf(&sb, "- `%s` %s (round %d)\n", hash, commit.Subject, commit.Round)
			} else {
				_, _ = fmt.Fprintf(&sb, "- `%s` (round %d)\n", hash, commit.Round)
			}
		}

		counts := countByType(report.Commits)
		if len(counts) > 0 {
			sb.WriteString("\nBy type:")
			for _, ct := range commitTypeOrder {
				if counts[ct] > 0 {
					_, _ = fmt.Fprintf(&sb, " %s %d", ct, counts[ct])
				}
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")

	return sb.String()
}

// verdictOrder returns the verdict keys in a stable display order: the known
// verdicts first, then anything else alphabetically.
func verdictOrder(verdicts map[string]int) []string {
	known := []string{"done", "continue", "blocked"}
	var order []string
	seen := make(map[string]bool)
	for _, v := range known {
		if verdicts[v] > 0 {
			order = append(order, v)
			seen[v] = true
		}
	}
	var rest []string
	for v := range verdicts {
		if !seen[v] {
			rest = append(rest, v)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func countByType(commits []CommitInfo) map[git.CommitType]int {
	counts := make(map[git.CommitType]int)
	for _, c := range commits {
		if c.Type != "" {
			counts[c.Type]++
		}
	}
	return counts
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	}
	return fmt.Sprintf("%.1f hours", d.Hours())
}
