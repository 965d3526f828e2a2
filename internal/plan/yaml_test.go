package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportYAMLHierarchical(t *testing.T) {
	data := []byte(`tasks:
  - name: Wire the config loader
    subtasks:
      - name: add defaults table
        done: true
      - name: read env overrides
  - name: Ship docs
    subtasks:
      - README section
`)

	md, err := ImportYAML(data)
	require.NoError(t, err)

	assert.Contains(t, md, "### Task 1: Wire the config loader")
	assert.Contains(t, md, "- [x] add defaults table")
	assert.Contains(t, md, "- [ ] read env overrides")
	assert.Contains(t, md, "### Task 2: Ship docs")
	assert.Contains(t, md, "- [ ] README section")

	snap := Parse(md)
	require.Len(t, snap.Tasks, 2)
	assert.Equal(t, 2, snap.Pending)
}

func TestImportYAMLFlat(t *testing.T) {
	data := []byte(`tasks:
  - name: set up repo
    done: true
  - name: add linter
`)

	md, err := ImportYAML(data)
	require.NoError(t, err)
	assert.NotContains(t, md, "### Task")

	snap := Parse(md)
	require.Len(t, snap.Tasks, 2)
	assert.True(t, snap.Tasks[0].Completed)
	assert.False(t, snap.Tasks[1].Completed)
}

func TestImportYAMLHeaderTaskWithoutSubtasks(t *testing.T) {
	data := []byte(`tasks:
  - name: big task
    subtasks:
      - step one
  - name: lone task
    done: true
`)

	md, err := ImportYAML(data)
	require.NoError(t, err)

	snap := Parse(md)
	require.Len(t, snap.Tasks, 2)
	assert.False(t, snap.Tasks[0].Completed)
	assert.True(t, snap.Tasks[1].Completed)
}

func TestImportYAMLErrors(t *testing.T) {
	t.Run("no tasks", func(t *testing.T) {
		_, err := ImportYAML([]byte("tasks: []\n"))
		assert.ErrorIs(t, err, ErrNoTasks)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := ImportYAML([]byte("tasks:\n  - done: true\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "name is required")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ImportYAML([]byte("tasks: [unclosed"))
		assert.Error(t, err)
	})
}
