// Package session persists controller run state across process restarts.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Status represents the lifecycle state of a session.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var validStatuses = map[Status]bool{
	StatusRunning:   true,
	StatusPaused:    true,
	StatusCompleted: true,
	StatusFailed:    true,
}

// IsValid returns true if the status is one of the known values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// Stats aggregates counters persisted with the session.
type Stats struct {
	TasksTotal         int     `json:"tasks_total"`
	TasksCompleted     int     `json:"tasks_completed"`
	RoundsWithChanges  int     `json:"rounds_with_changes"`
	ValidationFailures int     `json:"validation_failures"`
	CostUSD            float64 `json:"cost_usd"`
}

// State is the persisted session record.
type State struct {
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	Task          string    `json:"task"`
	Iteration     int       `json:"iteration"`
	MaxIterations int       `json:"max_iterations"`
	Commits       []string  `json:"commits"`
	Stats         Stats     `json:"stats"`
	PauseReason   string    `json:"pause_reason,omitempty"`
	ExitReason    string    `json:"exit_reason,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Active reports whether the session still owns the working directory.
func (s *State) Active() bool {
	return s.Status == StatusRunning || s.Status == StatusPaused
}

var (
	// ErrActiveSession means a running or paused session already exists.
	ErrActiveSession = errors.New("an active session already exists")
	// ErrNoSession means no session file was found.
	ErrNoSession = errors.New("no session found")
)

// Store reads and writes the session file. It takes an afero.Fs so tests can
// run against an in-memory filesystem.
type Store struct {
	fs   afero.Fs
	path string
	now  func() time.Time
}

// NewStore creates a store for the session file at path. A nil fs defaults
// to the OS filesystem.
func NewStore(fs afero.Fs, path string) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Store{fs: fs, path: path, now: time.Now}
}

// Load reads the session file. A missing file returns ErrNoSession.
func (s *Store) Load() (*State, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		exists, statErr := afero.Exists(s.fs, s.path)
		if statErr == nil && !exists {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}
	return &state, nil
}

// Save writes the session atomically via a temp file and rename, stamping
// UpdatedAt.
func (s *Store) Save(state *State) error {
	state.UpdatedAt = s.now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

// Start creates a new running session. It fails with ErrActiveSession when a
// running or paused session already exists; completed and failed sessions
// are overwritten.
func (s *Store) Start(task string, maxIterations int) (*State, error) {
	existing, err := s.Load()
	if err != nil && !errors.Is(err, ErrNoSession) {
		return nil, err
	}
	if existing != nil && existing.Active() {
		return nil, fmt.Errorf("%w (status %s, use --resume or clear)", ErrActiveSession, existing.Status)
	}

	state := &State{
		ID:            uuid.New().String()[:8],
		Status:        StatusRunning,
		Task:          task,
		MaxIterations: maxIterations,
		Commits:       []string{},
		StartedAt:     s.now(),
	}
	if err := s.Save(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Resume transitions a paused session back to running.
func (s *Store) Resume() (*State, error) {
	state, err := s.Load()
	if err != nil {
		return nil, err
	}
	if state.Status != StatusPaused {
		return nil, fmt.Errorf("session is not paused (status %s)", state.Status)
	}

	state.Status = StatusRunning
	state.PauseReason = ""
	if err := s.Save(state); err != nil {
		return nil, err
	}
	return state, nil
}

// Pause marks the session paused with a reason and persists it.
func (s *Store) Pause(state *State, reason string) error {
	state.Status = StatusPaused
	state.PauseReason = reason
	return s.Save(state)
}

// Finish marks the session completed or failed with the exit reason.
func (s *Store) Finish(state *State, status Status, exitReason string) error {
	state.Status = status
	state.ExitReason = exitReason
	return s.Save(state)
}

// Clear removes the session file. A missing file is not an error.
func (s *Store) Clear() error {
	err := s.fs.Remove(s.path)
	if err != nil {
		exists, statErr := afero.Exists(s.fs, s.path)
		if statErr == nil && !exists {
			return nil
		}
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
