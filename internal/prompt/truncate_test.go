package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestTruncateBytesUnderLimit(t *testing.T) {
	s := "short text"
	assert.Equal(t, s, TruncateBytes(s, 100))
	assert.Equal(t, s, TruncateBytes(s, len(s)))
}

func TestTruncateBytesPrefersParagraphBoundary(t *testing.T) {
	s := strings.Repeat("alpha beta gamma delta ", 10) + "\n\n" + strings.Repeat("second paragraph words ", 10)
	limit := len(s) - 20

	out := TruncateBytes(s, limit)
	require.LessOrEqual(t, len(out), limit)
	assert.True(t, strings.HasSuffix(out, TruncationMarker))

	body := strings.TrimSuffix(out, "\n"+TruncationMarker)
	assert.True(t, strings.HasPrefix(s, body))
}

func TestTruncateBytesFallsBackToLineBoundary(t *testing.T) {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, "line with several plain words on it")
	}
	s := strings.Join(lines, "\n")

	out := TruncateBytes(s, 200)
	require.LessOrEqual(t, len(out), 200)
	body := strings.TrimSuffix(out, "\n"+TruncationMarker)

	// The cut landed on a line boundary, so the body is whole lines and the
	// next byte in the original is the newline that was cut.
	assert.True(t, strings.HasPrefix(s, body))
	assert.Equal(t, byte('\n'), s[len(body)])
}

func TestTruncateBytesNeverSplitsWordAtBoundary(t *testing.T) {
	// Newline at byte 80 sits in the back half of the 104 available bytes.
	s := strings.Repeat("word ", 16) + "\n" + strings.Repeat("word ", 40)

	out := TruncateBytes(s, 120)
	body := strings.TrimSuffix(out, "\n"+TruncationMarker)

	assert.Equal(t, strings.TrimRight(strings.Repeat("word ", 16), " "), body)
}

func TestTruncateBytesHardCutWhenNoBoundary(t *testing.T) {
	s := strings.Repeat("x", 500)

	out := TruncateBytes(s, 100)
	require.LessOrEqual(t, len(out), 100)
	assert.True(t, strings.HasSuffix(out, TruncationMarker))
}

func TestTruncateBytesIdempotent(t *testing.T) {
	inputs := []string{
		strings.Repeat("alpha beta gamma ", 40),
		strings.Repeat("one line of text\n", 50),
		strings.Repeat("para one words here ", 10) + "\n\n" + strings.Repeat("para two words here ", 10),
		strings.Repeat("z", 400),
	}

	for _, s := range inputs {
		for _, limit := range []int{80, 150, 300} {
			once := TruncateBytes(s, limit)
			twice := TruncateBytes(once, limit)
			assert.Equal(t, once, twice, "limit %d", limit)
			assert.LessOrEqual(t, len(once), limit)
		}
	}
}

func TestTruncateToTokens(t *testing.T) {
	s := strings.Repeat("tokens everywhere ", 100)

	out := TruncateToTokens(s, 50)
	assert.LessOrEqual(t, len(out), 50*4)

	assert.Equal(t, s, TruncateToTokens(s, 0))
}

func TestCompressFeedbackUnderBudget(t *testing.T) {
	s := "Command: go vet ./...\nOutput:\nok\n"
	assert.Equal(t, s, CompressFeedback(s, 1000))
}

func TestCompressFeedbackKeepsHeadersFirst(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 4; i++ {
		sb.WriteString("Command: go test ./pkg" + string(rune('a'+i)) + "\n")
		sb.WriteString("Output:\n")
		sb.WriteString(strings.Repeat("assertion failed at some line\n", 30))
	}
	s := sb.String()

	out := CompressFeedback(s, 400)
	require.LessOrEqual(t, len(out), 400)
	assert.Contains(t, out, "Command: go test ./pkga")
}

func TestCompressFeedbackMarksOmittedSections(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteString("Command: check-" + strings.Repeat("x", 30) + "\n")
		sb.WriteString(strings.Repeat("body\n", 20))
	}

	out := CompressFeedback(sb.String(), 150)
	assert.Contains(t, out, "more sections omitted]")
}

func TestCompressFeedbackHeaderlessFallsBackToTruncate(t *testing.T) {
	s := strings.Repeat("plain failure text with words\n", 40)

	out := CompressFeedback(s, 200)
	assert.LessOrEqual(t, len(out), 200)
	assert.Contains(t, out, TruncationMarker)
}
