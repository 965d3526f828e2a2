package plan

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlPlan is the import schema for `drover import`.
type yamlPlan struct {
	Tasks []yamlTask `yaml:"tasks"`
}

type yamlTask struct {
	Name     string        `yaml:"name"`
	Done     bool          `yaml:"done"`
	Subtasks []yamlSubtask `yaml:"subtasks"`
}

type yamlSubtask struct {
	Name string `yaml:"name"`
	Done bool   `yaml:"done"`
}

// UnmarshalYAML accepts either a bare string or a {name, done} mapping for a
// subtask entry.
func (s *yamlSubtask) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Name = value.Value
		s.Done = false
		return nil
	}

	type raw yamlSubtask
	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}
	*s = yamlSubtask(r)
	return nil
}

// ImportYAML converts a YAML task list into the markdown plan format. Tasks
// with subtasks render as `### Task N:` headers owning checkboxes; a plan
// where no task has subtasks renders as bare checkboxes.
func ImportYAML(data []byte) (string, error) {
	var p yamlPlan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return "", fmt.Errorf("failed to parse task YAML: %w", err)
	}

	if len(p.Tasks) == 0 {
		return "", ErrNoTasks
	}
	for i, t := range p.Tasks {
		if strings.TrimSpace(t.Name) == "" {
			return "", fmt.Errorf("task %d: name is required", i+1)
		}
	}

	hierarchical := false
	for _, t := range p.Tasks {
		if len(t.Subtasks) > 0 {
			hierarchical = true
			break
		}
	}

	var sb strings.Builder
	if !hierarchical {
		for _, t := range p.Tasks {
			_, _ = fmt.Fprintf(&sb, "- [%s] %s\n", checkboxMark(t.Done), t.Name)
		}
		return sb.String(), nil
	}

	for i, t := range p.Tasks {
		if i > 0 {
			sb.WriteString("\n")
		}
		_, _ = fmt.Fprintf(&sb, "### Task %d: %s\n", i+1, t.Name)
		if len(t.Subtasks) == 0 {
			// A header needs at least one checkbox to be trackable.
			_, _ = fmt.Fprintf(&sb, "- [%s] %s\n", checkboxMark(t.Done), t.Name)
			continue
		}
		for _, st := range t.Subtasks {
			_, _ = fmt.Fprintf(&sb, "- [%s] %s\n", checkboxMark(st.Done), st.Name)
		}
	}
	return sb.String(), nil
}

func checkboxMark(done bool) string {
	if done {
		return "x"
	}
	return " "
}
