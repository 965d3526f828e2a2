package verify

import (
	"errors"
	"strings"
)

// TruncationMarker is the marker added when output is trimmed.
const TruncationMarker = "... [output truncated]"

// DefaultMaxLines is the default maximum number of lines kept per failure.
const DefaultMaxLines = 100

// DefaultMaxBytes is the default maximum output size per failure in bytes.
const DefaultMaxBytes = 8192

// TrimOptions configures output trimming behavior.
type TrimOptions struct {
	// MaxLines is the maximum number of lines to keep. 0 disables the limit.
	MaxLines int

	// MaxBytes is the maximum output size in bytes. 0 disables the limit.
	MaxBytes int
}

// Validate checks that the options are valid.
func (o TrimOptions) Validate() error {
	if o.MaxLines < 0 {
		return errors.New("MaxLines cannot be negative")
	}
	if o.MaxBytes < 0 {
		return errors.New("MaxBytes cannot be negative")
	}
	return nil
}

// DefaultTrimOptions returns sensible default trim options.
func DefaultTrimOptions() TrimOptions {
	return TrimOptions{
		MaxLines: DefaultMaxLines,
		MaxBytes: DefaultMaxBytes,
	}
}

// TrimOutput trims validation output to fit within configured limits. It
// preserves the tail of the output since error messages typically appear at
// the end; a truncation marker is added at the beginning when trimmed.
func TrimOutput(output string, opts TrimOptions) string {
	if output == "" {
		return ""
	}

	if opts.MaxLines <= 0 && opts.MaxBytes <= 0 {
		return output
	}

	result := output

	if opts.MaxLines > 0 {
		result = trimToMaxLines(result, opts.MaxLines)
	}

	if opts.MaxBytes > 0 {
		result = trimToMaxBytes(result, opts.MaxBytes)
	}

	return result
}

// trimToMaxLines trims output to at most maxLines, preserving the tail.
func trimToMaxLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")

	if len(lines) <= maxLines {
		return output
	}

	kept := lines[len(lines)-maxLines:]
	return TruncationMarker + "\n" + strings.Join(kept, "\n")
}

// trimToMaxBytes trims output to at most maxBytes, preserving the tail.
func trimToMaxBytes(output string, maxBytes int) string {
	if len(output) <= maxBytes {
		return output
	}

	markerLen := len(TruncationMarker) + 1
	contentBytes := maxBytes - markerLen
	if contentBytes <= 0 {
		return TruncationMarker
	}

	startIdx := max(len(output)-contentBytes, 0)
	return TruncationMarker + "\n" + output[startIdx:]
}

// FeedbackFromResults formats failed results for inclusion in the next round
// prompt. Passing results are omitted; failed outputs are trimmed.
func FeedbackFromResults(results []Result, opts TrimOptions) string {
	var builder strings.Builder

	for _, result := range results {
		if result.Passed {
			continue
		}

		builder.WriteString("Command: ")
		builder.WriteString(strings.Join(result.Command, " "))
		builder.WriteString("\n")

		builder.WriteString("Output:\n")
		builder.WriteString(TrimOutput(result.Output, opts))
		builder.WriteString("\n\n")
	}

	return strings.TrimSpace(builder.String())
}
