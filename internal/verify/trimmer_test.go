package verify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimOptionsValidate(t *testing.T) {
	assert.NoError(t, TrimOptions{MaxLines: 10, MaxBytes: 100}.Validate())
	assert.NoError(t, TrimOptions{}.Validate())
	assert.Error(t, TrimOptions{MaxLines: -1}.Validate())
	assert.Error(t, TrimOptions{MaxBytes: -1}.Validate())
}

func TestTrimOutput(t *testing.T) {
	t.Run("empty output", func(t *testing.T) {
		assert.Equal(t, "", TrimOutput("", DefaultTrimOptions()))
	})

	t.Run("no limits returns unchanged", func(t *testing.T) {
		output := strings.Repeat("line\n", 1000)
		assert.Equal(t, output, TrimOutput(output, TrimOptions{}))
	})

	t.Run("under limits returns unchanged", func(t *testing.T) {
		output := "short output\nwith two lines"
		assert.Equal(t, output, TrimOutput(output, DefaultTrimOptions()))
	})

	t.Run("preserves tail when trimming lines", func(t *testing.T) {
		var lines []string
		for i := 1; i <= 20; i++ {
			lines = append(lines, fmt.Sprintf("line%d", i))
		}
		output := strings.Join(lines, "\n")

		got := TrimOutput(output, TrimOptions{MaxLines: 5})

		assert.True(t, strings.HasPrefix(got, TruncationMarker))
		assert.Contains(t, got, "line20")
		assert.Contains(t, got, "line16")
		assert.NotContains(t, got, "line15\n")
	})

	t.Run("preserves tail when trimming bytes", func(t *testing.T) {
		output := strings.Repeat("a", 500) + "FINAL ERROR"

		got := TrimOutput(output, TrimOptions{MaxBytes: 100})

		assert.LessOrEqual(t, len(got), 100)
		assert.True(t, strings.HasPrefix(got, TruncationMarker))
		assert.True(t, strings.HasSuffix(got, "FINAL ERROR"))
	})

	t.Run("tiny byte budget returns only marker", func(t *testing.T) {
		got := TrimOutput(strings.Repeat("x", 100), TrimOptions{MaxBytes: 5})
		assert.Equal(t, TruncationMarker, got)
	})
}

func TestFeedbackFromResults(t *testing.T) {
	t.Run("includes only failed results", func(t *testing.T) {
		results := []Result{
			{Passed: true, Command: []string{"go", "vet", "./..."}, Output: "ok"},
			{Passed: false, Command: []string{"go", "test", "./..."}, Output: "--- FAIL: TestParse"},
		}

		got := FeedbackFromResults(results, DefaultTrimOptions())

		assert.Contains(t, got, "Command: go test ./...")
		assert.Contains(t, got, "Output:\n--- FAIL: TestParse")
		assert.NotContains(t, got, "go vet")
	})

	t.Run("all passed yields empty feedback", func(t *testing.T) {
		results := []Result{
			{Passed: true, Command: []string{"go", "build"}, Output: ""},
		}
		assert.Empty(t, FeedbackFromResults(results, DefaultTrimOptions()))
	})

	t.Run("trims long failure output", func(t *testing.T) {
		results := []Result{
			{Passed: false, Command: []string{"go", "test"}, Output: strings.Repeat("x", 20000) + "\nreal error"},
		}

		got := FeedbackFromResults(results, DefaultTrimOptions())

		require.Less(t, len(got), 10000)
		assert.Contains(t, got, TruncationMarker)
		assert.Contains(t, got, "real error")
	})

	t.Run("multiple failures render in order", func(t *testing.T) {
		results := []Result{
			{Passed: false, Command: []string{"go", "build"}, Output: "syntax error"},
			{Passed: false, Command: []string{"go", "test"}, Output: "FAIL"},
		}

		got := FeedbackFromResults(results, DefaultTrimOptions())

		buildIdx := strings.Index(got, "Command: go build")
		testIdx := strings.Index(got, "Command: go test")
		require.GreaterOrEqual(t, buildIdx, 0)
		require.Greater(t, testIdx, buildIdx)
	})
}
