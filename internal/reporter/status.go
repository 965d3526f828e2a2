// Package reporter renders run status and end-of-run summaries from the
// session file, the plan ledger, and the per-round records.
package reporter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/loopkit/drover/internal/loop"
	"github.com/loopkit/drover/internal/plan"
	"github.com/loopkit/drover/internal/session"
	"github.com/loopkit/drover/internal/state"
)

// PlanCounts holds the task counts derived from the plan ledger.
type PlanCounts struct {
	// Total is the number of tasks in the plan.
	Total int

	// Completed is the count of checked-off tasks.
	Completed int

	// Pending is the count of tasks still open.
	Pending int
}

// LastRoundInfo summarizes the most recent round record.
type LastRoundInfo struct {
	// RoundID is the short identifier of the round.
	RoundID string

	// Index is the 1-based round number.
	Index int

	// Verdict is the classification the round ended with.
	Verdict string

	// EndedAt is when the round finished.
	EndedAt time.Time

	// LogPath is the path to the round record file.
	LogPath string
}

// Status is the current state of the working directory as drover sees it.
type Status struct {
	// Session is the persisted session, nil when none exists.
	Session *session.State

	// Plan holds the ledger counts.
	Plan PlanCounts

	// CurrentTask is the first pending task in the plan, empty when done.
	CurrentTask string

	// Paused reports whether the pause flag is set.
	Paused bool

	// CompleteSentinel reports whether a completion sentinel file exists.
	CompleteSentinel bool

	// LastRound describes the most recent round record, nil when none exist.
	LastRound *LastRoundInfo
}

// StatusGenerator assembles a Status from the on-disk run state.
type StatusGenerator struct {
	workDir  string
	planPath string
	sessions *session.Store
}

// NewStatusGenerator creates a status generator for the working directory.
func NewStatusGenerator(workDir, planPath string, sessions *session.Store) *StatusGenerator {
	return &StatusGenerator{
		workDir:  workDir,
		planPath: planPath,
		sessions: sessions,
	}
}

// GetStatus reads the session, plan, pause flag, sentinel, and latest round
// record. A missing session or plan is not an error; a missing working
// directory is.
func (g *StatusGenerator) GetStatus() (*Status, error) {
	status := &Status{}

	sess, err := g.sessions.Load()
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	status.Session = sess

	snap, err := plan.LoadFile(g.planPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	status.Plan = PlanCounts{
		Total:     snap.Total,
		Completed: snap.Completed,
		Pending:   snap.Pending,
	}
	if cur := snap.CurrentTask(); cur != nil {
		status.CurrentTask = cur.Name
	}

	if paused, err := state.IsPaused(g.workDir); err == nil {
		status.Paused = paused
	}
	if present, err := state.HasCompleteSentinel(g.workDir); err == nil {
		status.CompleteSentinel = present
	}

	logsDir := state.LogsDirPath(g.workDir)
	record, err := loop.LoadLatestRecord(logsDir)
	if err == nil && record != nil {
		status.LastRound = &LastRoundInfo{
			RoundID: record.RoundID,
			Index:   record.Index,
			Verdict: record.Verdict,
			EndedAt: record.EndedAt,
			LogPath: filepath.Join(logsDir, fmt.Sprintf("round-%03d-%s.json", record.Index, record.RoundID)),
		}
	}

	return status, nil
}

// FormatStatus formats a status for CLI display.
func FormatStatus(status *Status) string {
	var sb strings.Builder

	sb.WriteString("## Status\n\n")

	sb.WriteString("### Session\n")
	if status.Session != nil {
		_, _ = fmt.Fprintf(&sb, "ID: %s\n", status.Session.ID)
		_, _ = fmt.Fprintf(&sb, "Status: %s\n", status.Session.Status)
		if status.Session.Task != "" {
			_, _ = fmt.Fprintf(&sb, "Task: %s\n", status.Session.Task)
		}
		_, _ = fmt.Fprintf(&sb, "Rounds: %d of %d\n", status.Session.Iteration, status.Session.MaxIterations)
		if status.Session.Stats.CostUSD > 0 {
			_, _ = fmt.Fprintf(&sb, "Cost: $%.4f\n", status.Session.Stats.CostUSD)
		}
		if status.Session.PauseReason != "" {
			_, _ = fmt.Fprintf(&sb, "Pause reason: %s\n", status.Session.PauseReason)
		}
		if status.Session.ExitReason != "" {
			_, _ = fmt.Fprintf(&sb, "Exit reason: %s\n", status.Session.ExitReason)
		}
	} else {
		sb.WriteString("No session. Run 'drover run' to start one.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("### Plan\n")
	_, _ = fmt.Fprintf(&sb, "Total: %d\n", status.Plan.Total)
	_, _ = fmt.Fprintf(&sb, "Completed: %d\n", status.Plan.Completed)
	_, _ = fmt.Fprintf(&sb, "Pending: %d\n", status.Plan.Pending)
	if status.CurrentTask != "" {
		_, _ = fmt.Fprintf(&sb, "Current task: %s\n", status.CurrentTask)
	}
	sb.WriteString("\n")

	if status.Paused {
		sb.WriteString("Paused: yes (run 'drover resume' to clear)\n\n")
	}
	if status.CompleteSentinel {
		sb.WriteString("Completion sentinel: present\n\n")
	}

	if status.LastRound != nil {
		sb.WriteString("### Last Round\n")
		_, _ = fmt.Fprintf(&sb, "Round: %d (%s)\n", status.LastRound.Index, status.LastRound.RoundID)
		_, _ = fmt.Fprintf(&sb, "Verdict: %s\n", status.LastRound.Verdict)
		if !status.LastRound.EndedAt.IsZero() {
			_, _ = fmt.Fprintf(&sb, "Ended: %s\n", status.LastRound.EndedAt.Format(time.RFC3339))
		}
		_, _ = fmt.Fprintf(&sb, "Log: %s\n", status.LastRound.LogPath)
	}

	return sb.String()
}
