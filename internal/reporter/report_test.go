package reporter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopkit/drover/internal/git"
	"github.com/loopkit/drover/internal/loop"
	"github.com/loopkit/drover/internal/session"
	"github.com/loopkit/drover/internal/state"
)

// stubGit serves commit messages by hash for report tests.
type stubGit struct {
	messages map[string]string
}

func (s *stubGit) IsRepo(context.Context) bool                       { return true }
func (s *stubGit) GetCurrentBranch(context.Context) (string, error)  { return "main", nil }
func (s *stubGit) GetCurrentCommit(context.Context) (string, error)  { return "", nil }
func (s *stubGit) HasChanges(context.Context) (bool, error)          { return false, nil }
func (s *stubGit) GetChangedFiles(context.Context) ([]string, error) { return nil, nil }
func (s *stubGit) EnsureBranch(context.Context, string) error        { return nil }
func (s *stubGit) Commit(context.Context, string) (string, error)    { return "", nil }
func (s *stubGit) Push(context.Context) error                        { return nil }

func (s *stubGit) GetCommitMessage(_ context.Context, hash string) (string, error) {
	msg, ok := s.messages[hash]
	if !ok {
		return "", errors.New("unknown revision")
	}
	return msg, nil
}

var _ git.Manager = (*stubGit)(nil)

func writeRecord(t *testing.T, logsDir string, index int, mutate func(*loop.IterationRecord)) *loop.IterationRecord {
	t.Helper()
	record := loop.NewIterationRecord(index)
	record.StartedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(index) * time.Minute)
	record.EndedAt = record.StartedAt.Add(30 * time.Second)
	record.Verdict = "continue"
	if mutate != nil {
		mutate(record)
	}
	_, err := loop.SaveRecord(logsDir, record)
	require.NoError(t, err)
	return record
}

func TestGenerateReportEmpty(t *testing.T) {
	dir := t.TempDir()
	gen := NewReportGenerator(state.LogsDirPath(dir), nil, nil)

	report, err := gen.GenerateReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalRounds)
	assert.Empty(t, report.Commits)
	assert.Zero(t, report.TotalCostUSD)

	output := FormatReport(report)
	assert.Contains(t, output, "No commits produced")
}

func TestGenerateReportAggregatesRecords(t *testing.T) {
	dir := t.TempDir()
	logsDir := state.LogsDirPath(dir)

	writeRecord(t, logsDir, 1, func(r *loop.IterationRecord) {
		r.CostUSD = 0.5
		r.FilesChanged = true
		r.Committed = true
		r.CommitHash = "aaaa000011112222333344445555666677778888"
	})
	writeRecord(t, logsDir, 2, func(r *loop.IterationRecord) {
		r.CostUSD = 0.25
		r.Validation = &loop.ValidationSummary{Tier: "cheap", Passed: false, FailedCommand: "go vet ./..."}
	})
	writeRecord(t, logsDir, 3, func(r *loop.IterationRecord) {
		r.CostUSD = 0.25
		r.Verdict = "done"
		r.FilesChanged = true
		r.Committed = true
		r.CommitHash = "bbbb000011112222333344445555666677778888"
	})

	sessions := session.NewStore(nil, state.SessionFilePath(dir))
	_, err := sessions.Start("Build the CSV importer", 10)
	require.NoError(t, err)

	gitMgr := &stubGit{messages: map[string]string{
		"aaaa000011112222333344445555666677778888": "feat: Add CSV header parsing\n\nDrover round 1",
		"bbbb000011112222333344445555666677778888": "fix: Handle quoted separators\n\nDrover round 3",
	}}

	gen := NewReportGenerator(logsDir, sessions, gitMgr)
	report, err := gen.GenerateReport(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Build the CSV importer", report.Task)
	assert.Equal(t, 3, report.TotalRounds)
	assert.Equal(t, 2, report.RoundsWithChanges)
	assert.Equal(t, 1, report.ValidationFailures)
	assert.InDelta(t, 1.0, report.TotalCostUSD, 0.0001)
	assert.Equal(t, map[string]int{"continue": 2, "done": 1}, report.Verdicts)

	require.Len(t, report.Commits, 2)
	assert.Equal(t, git.CommitTypeFeat, report.Commits[0].Type)
	assert.Equal(t, "Add CSV header parsing", report.Commits[0].Subject)
	assert.Equal(t, 1, report.Commits[0].Round)
	assert.Equal(t, git.CommitTypeFix, report.Commits[1].Type)
	assert.Equal(t, 3, report.Commits[1].Round)

	// Rounds span minute 1 to minute 3 plus the 30s round duration.
	assert.Equal(t, 2*time.Minute+30*time.Second, report.TotalDuration)
}

func TestGenerateReportDegradesWithoutGit(t *testing.T) {
	dir := t.TempDir()
	logsDir := state.LogsDirPath(dir)

	writeRecord(t, logsDir, 1, func(r *loop.IterationRecord) {
		r.Committed = true
		r.CommitHash = "cccc000011112222333344445555666677778888"
	})

	gen := NewReportGenerator(logsDir, nil, nil)
	report, err := gen.GenerateReport(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Commits, 1)
	assert.Empty(t, report.Commits[0].Subject)
	assert.Empty(t, report.Commits[0].Type)
}

func TestGenerateReportNonConventionalMessage(t *testing.T) {
	dir := t.TempDir()
	logsDir := state.LogsDirPath(dir)

	writeRecord(t, logsDir, 1, func(r *loop.IterationRecord) {
		r.Committed = true
		r.CommitHash = "dddd000011112222333344445555666677778888"
	})

	gitMgr := &stubGit{messages: map[string]string{
		"dddd000011112222333344445555666677778888": "WIP importer scaffolding\n\nmore context",
	}}

	gen := NewReportGenerator(logsDir, nil, gitMgr)
	report, err := gen.GenerateReport(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Commits, 1)
	assert.Equal(t, "WIP importer scaffolding", report.Commits[0].Subject)
	assert.Empty(t, report.Commits[0].Type)
}

func TestFormatReport(t *testing.T) {
	report := &Report{
		Task:               "Build the CSV importer",
		TotalRounds:        3,
		RoundsWithChanges:  2,
		ValidationFailures: 1,
		Verdicts:           map[string]int{"continue": 2, "done": 1},
		Commits: []CommitInfo{
			{Hash: "aaaa000011112222333344445555666677778888", Subject: "Add CSV header parsing", Type: git.CommitTypeFeat, Round: 1},
			{Hash: "bbbb000011112222333344445555666677778888", Subject: "Handle quoted separators", Type: git.CommitTypeFix, Round: 3},
		},
		TotalCostUSD:  1.0,
		TotalDuration: 150 * time.Second,
	}

	output := FormatReport(report)

	assert.Contains(t, output, "# Run Report")
	assert.Contains(t, output, "**Task:** Build the CSV importer")
	assert.Contains(t, output, "- **Rounds:** 3")
	assert.Contains(t, output, "- **Validation failures:** 1")
	assert.Contains(t, output, "- **Total cost:** $1.0000")
	assert.Contains(t, output, "- **Duration:** 2.5 minutes")
	assert.Contains(t, output, "- done: 1")
	assert.Contains(t, output, "- continue: 2")
	assert.Contains(t, output, "`aaaa0000` Add CSV header parsing (round 1)")
	assert.Contains(t, output, "By type: feat 1 fix 1")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45 seconds", formatDuration(45*time.Second))
	assert.Equal(t, "2.5 minutes", formatDuration(150*time.Second))
	assert.Equal(t, "1.5 hours", formatDuration(90*time.Minute))
}
