// Package plan parses and tracks the markdown task ledger that drives a run.
package plan

import (
	"bufio"
	"errors"
	"os"
	"regexp"
	"strings"
)

// ErrNoTasks indicates a plan representation with nothing actionable in it.
var ErrNoTasks = errors.New("plan has no tasks")

// Subtask is a single checkbox line under a task header.
type Subtask struct {
	Name      string
	Completed bool
}

// Task is one unit of plan work. A task with subtasks is completed iff all
// of its subtasks are completed; a task without subtasks carries its own
// completion flag.
type Task struct {
	// Name is the header or checkbox text.
	Name string

	// Completed reports whether the task is done.
	Completed bool

	// Index is the zero-based position in the plan.
	Index int

	// Subtasks holds the owned checkbox lines, empty for flat tasks.
	Subtasks []Subtask
}

// Snapshot is a derived, read-only view of the ledger. It is recomputed on
// every parse and never mutated in place.
type Snapshot struct {
	Total     int
	Completed int
	Pending   int
	Tasks     []Task
}

var (
	taskHeaderPattern = regexp.MustCompile(`^###\s+Task\s+\d+\s*:\s*(.+?)\s*$`)
	checkboxPattern   = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s+(.+?)\s*$`)
)

// Parse reads a plan representation and derives a fresh snapshot. Two
// formats are detected automatically: `### Task N: <name>` headers owning
// checkbox subtasks, and bare checkboxes with no headers (each checkbox its
// own task). Checkboxes that appear before any header are treated as flat
// tasks.
func Parse(text string) *Snapshot {
	var tasks []Task
	var current *Task

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if m := taskHeaderPattern.FindStringSubmatch(line); m != nil {
			if current != nil {
				tasks = append(tasks, *current)
			}
			current = &Task{Name: m[1], Index: len(tasks)}
			continue
		}

		m := checkboxPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		checked := m[1] != " "
		name := m[2]

		if current != nil {
			current.Subtasks = append(current.Subtasks, Subtask{Name: name, Completed: checked})
			continue
		}
		tasks = append(tasks, Task{Name: name, Completed: checked, Index: len(tasks)})
	}
	if current != nil {
		tasks = append(tasks, *current)
	}

	snap := &Snapshot{Tasks: tasks}
	for i := range snap.Tasks {
		t := &snap.Tasks[i]
		if len(t.Subtasks) > 0 {
			t.Completed = allSubtasksDone(t.Subtasks)
		}
		snap.Total++
		if t.Completed {
			snap.Completed++
		} else {
			snap.Pending++
		}
	}
	return snap
}

// LoadFile parses the plan file at path. A missing file yields an empty
// snapshot so a run can proceed on the task description alone.
func LoadFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Snapshot{}, nil
		}
		return nil, err
	}
	return Parse(string(data)), nil
}

// CurrentTask returns the first incomplete task, or nil when every task is
// complete or the plan is empty.
func (s *Snapshot) CurrentTask() *Task {
	for i := range s.Tasks {
		if !s.Tasks[i].Completed {
			return &s.Tasks[i]
		}
	}
	return nil
}

// AllComplete reports whether the plan holds at least one task and none of
// them are pending. An empty plan never counts as complete.
func (s *Snapshot) AllComplete() bool {
	return s.Total > 0 && s.Pending == 0
}

// PendingSubtasks counts the unchecked subtasks of one task.
func (t *Task) PendingSubtasks() int {
	n := 0
	for _, st := range t.Subtasks {
		if !st.Completed {
			n++
		}
	}
	return n
}

func allSubtasksDone(subs []Subtask) bool {
	for _, st := range subs {
		if !st.Completed {
			return false
		}
	}
	return true
}
