package loop

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxStoredOutput bounds how much agent output a round record keeps on disk.
const maxStoredOutput = 64 * 1024

// ValidationSummary captures the outcome of the validation step for a round.
type ValidationSummary struct {
	Tier          string `json:"tier"`
	Passed        bool   `json:"passed"`
	FailedCommand string `json:"failed_command,omitempty"`
}

// IterationRecord is the durable per-round audit record written under the
// logs directory as round-<id>.json.
type IterationRecord struct {
	RoundID       string              `json:"round_id"`
	Index         int                 `json:"index"`
	StartedAt     time.Time           `json:"started_at"`
	EndedAt       time.Time           `json:"ended_at"`
	DurationMs    int64               `json:"duration_ms"`
	AgentOutput   string              `json:"agent_output"`
	AgentExitCode int                 `json:"agent_exit_code"`
	Verdict       string              `json:"verdict"`
	VerdictReason string              `json:"verdict_reason"`
	Validation    *ValidationSummary  `json:"validation,omitempty"`
	FilesChanged  bool                `json:"files_changed"`
	Committed     bool                `json:"committed"`
	CommitHash    string              `json:"commit_hash,omitempty"`
	CostUSD       float64             `json:"cost_usd"`
}

// NewIterationRecord starts a record for the given round index.
func NewIterationRecord(index int) *IterationRecord {
	return &IterationRecord{
		RoundID:   uuid.New().String()[:8],
		Index:     index,
		StartedAt: time.Now(),
	}
}

// Finish stamps the end time and derives the duration.
func (r *IterationRecord) Finish() {
	r.EndedAt = time.Now()
	r.DurationMs = r.EndedAt.Sub(r.StartedAt).Milliseconds()
}

// SetOutput stores the agent output, truncated to keep record files small.
func (r *IterationRecord) SetOutput(output string) {
	if len(output) > maxStoredOutput {
		output = output[:maxStoredOutput] + "\n... [truncated]"
	}
	r.AgentOutput = output
}

// SaveRecord writes the record as JSON under logsDir and returns the path.
func SaveRecord(logsDir string, record *IterationRecord) (string, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal round record: %w", err)
	}

	path := filepath.Join(logsDir, fmt.Sprintf("round-%03d-%s.json", record.Index, record.RoundID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write round record: %w", err)
	}

	return path, nil
}

// LoadRecord reads a single round record from path.
func LoadRecord(path string) (*IterationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read round record: %w", err)
	}

	var record IterationRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse round record: %w", err)
	}

	return &record, nil
}

// ListRecordPaths returns the round record files under logsDir in round
// order. A missing directory yields an empty list.
func ListRecordPaths(logsDir string) ([]string, error) {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read logs directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "round-") && strings.HasSuffix(name, ".json") {
			paths = append(paths, filepath.Join(logsDir, name))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadLatestRecord returns the most recent round record under logsDir, or
// nil when none exist.
func LoadLatestRecord(logsDir string) (*IterationRecord, error) {
	paths, err := ListRecordPaths(logsDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, nil
	}
	return LoadRecord(paths[len(paths)-1])
}
