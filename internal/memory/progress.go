// Package memory maintains the append-only progress log written as rounds run.
package memory

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Log manages the .drover/progress.md file for tracking round history.
type Log struct {
	fs   afero.Fs
	path string
	now  func() time.Time
}

// RoundEntry represents a single round entry in the progress log.
type RoundEntry struct {
	Index         int
	Verdict       string
	VerdictReason string
	FilesChanged  bool
	CommitHash    string
	Validation    string
	CostUSD       float64
	Duration      time.Duration
}

// NewLog creates a Log manager for the given path. A nil fs defaults to the
// OS filesystem.
func NewLog(fs afero.Fs, path string) *Log {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Log{fs: fs, path: path, now: time.Now}
}

// Init creates a new progress log with the standard header. If the file
// already exists, it does nothing.
func (l *Log) Init(task string) error {
	if l.Exists() {
		return nil
	}

	header := l.formatHeader(task)
	if err := afero.WriteFile(l.fs, l.path, []byte(header), 0644); err != nil {
		return fmt.Errorf("failed to write progress log: %w", err)
	}

	return nil
}

// formatHeader creates the standard progress log header.
func (l *Log) formatHeader(task string) string {
	return fmt.Sprintf(`# Drover Progress

**Task**: %s
**Started**: %s

---

## Round Log

`, task, l.now().Format("2006-01-02"))
}

// Append appends a round entry to the progress log, creating the file if it
// does not exist yet.
func (l *Log) Append(entry RoundEntry) error {
	formatted := entry.Format(l.now())

	f, err := l.fs.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open progress log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(formatted); err != nil {
		return fmt.Errorf("failed to append to progress log: %w", err)
	}

	return nil
}

// Format renders the round entry as markdown.
func (e *RoundEntry) Format(timestamp time.Time) string {
	var sb strings.Builder

	_, _ = fmt.Fprintf(&sb, "### %s: Round %d (%s)\n\n",
		timestamp.Format("2006-01-02 15:04"), e.Index, e.Verdict)

	sb.WriteString("**What happened:**\n")
	if e.VerdictReason != "" {
		_, _ = fmt.Fprintf(&sb, "- %s\n", e.VerdictReason)
	}
	if e.FilesChanged {
		sb.WriteString("- working tree changed\n")
	} else {
		sb.WriteString("- no file changes\n")
	}
	if e.CommitHash != "" {
		_, _ = fmt.Fprintf(&sb, "- committed as `%s`\n", e.CommitHash)
	}
	sb.WriteString("\n")

	if e.Validation != "" {
		_, _ = fmt.Fprintf(&sb, "**Validation**: %s\n", e.Validation)
	}

	_, _ = fmt.Fprintf(&sb, "**Outcome**: %s ($%.2f, %s)\n\n",
		e.Verdict, e.CostUSD, e.Duration.Round(time.Second))

	return sb.String()
}

// Tail returns the last n round entries as markdown. A missing file or a
// file with no entries yields an empty string.
func (l *Log) Tail(n int) (string, error) {
	if !l.Exists() {
		return "", nil
	}

	content, err := afero.ReadFile(l.fs, l.path)
	if err != nil {
		return "", fmt.Errorf("failed to read progress log: %w", err)
	}

	entries := splitEntries(string(content))
	if len(entries) == 0 {
		return "", nil
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	return strings.Join(entries, "\n"), nil
}

// splitEntries splits the round log into individual "### " sections,
// discarding everything before the first one.
func splitEntries(content string) []string {
	var entries []string
	var current strings.Builder
	inEntry := false

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "### ") {
			if inEntry {
				entries = append(entries, strings.TrimRight(current.String(), "\n")+"\n")
				current.Reset()
			}
			inEntry = true
		}
		if inEntry {
			current.WriteString(line)
			current.WriteString("\n")
		}
	}

	if inEntry && current.Len() > 0 {
		entries = append(entries, strings.TrimRight(current.String(), "\n")+"\n")
	}

	return entries
}

// Clear removes the progress log. A missing file is not an error.
func (l *Log) Clear() error {
	err := l.fs.Remove(l.path)
	if err != nil {
		if exists, statErr := afero.Exists(l.fs, l.path); statErr == nil && !exists {
			return nil
		}
		return fmt.Errorf("failed to remove progress log: %w", err)
	}
	return nil
}

// Exists returns true if the progress log exists.
func (l *Log) Exists() bool {
	exists, err := afero.Exists(l.fs, l.path)
	return err == nil && exists
}

// Path returns the file path of the progress log.
func (l *Log) Path() string {
	return l.path
}
