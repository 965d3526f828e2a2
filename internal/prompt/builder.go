// Package prompt assembles the bounded per-round prompt for the agent.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loopkit/drover/internal/plan"
)

// RoundTier selects how much context a round's prompt carries. Later rounds
// must not re-explain established context even when the budget would allow
// it.
type RoundTier string

const (
	TierFull        RoundTier = "full"
	TierAbbreviated RoundTier = "abbreviated"
	TierMinimal     RoundTier = "minimal"
)

// TierFor maps an iteration number to its tier: round 1 is full, rounds 2-3
// abbreviated, rounds 4+ minimal.
func TierFor(iteration int) RoundTier {
	switch {
	case iteration <= 1:
		return TierFull
	case iteration <= 3:
		return TierAbbreviated
	default:
		return TierMinimal
	}
}

// SizeOptions bounds the per-section character budgets.
type SizeOptions struct {
	// AbbrevSummaryBytes bounds the task summary on rounds 2-3.
	AbbrevSummaryBytes int

	// MinimalSummaryBytes bounds the task summary on rounds 4+.
	MinimalSummaryBytes int

	// AbbrevFeedbackBytes bounds validation feedback on rounds 2-3.
	AbbrevFeedbackBytes int

	// MinimalFeedbackBytes bounds validation feedback on rounds 4+.
	MinimalFeedbackBytes int
}

// DefaultSizeOptions returns the standard section budgets.
func DefaultSizeOptions() SizeOptions {
	return SizeOptions{
		AbbrevSummaryBytes:   600,
		MinimalSummaryBytes:  300,
		AbbrevFeedbackBytes:  1200,
		MinimalFeedbackBytes: 600,
	}
}

// Validate checks that all budgets are positive.
func (o SizeOptions) Validate() error {
	if o.AbbrevSummaryBytes <= 0 || o.MinimalSummaryBytes <= 0 {
		return errors.New("summary budgets must be positive")
	}
	if o.AbbrevFeedbackBytes <= 0 || o.MinimalFeedbackBytes <= 0 {
		return errors.New("feedback budgets must be positive")
	}
	return nil
}

// Input carries everything one round's prompt is built from. Build is a pure
// function of this value.
type Input struct {
	Iteration     int
	MaxIterations int

	// TaskDescription is the run's initial task text.
	TaskDescription string

	// Current is the ledger's first incomplete task, nil when the run has
	// no plan.
	Current *plan.Task

	// Snapshot is the fresh ledger state for this round.
	Snapshot *plan.Snapshot

	// Feedback is validation failure text from the previous round.
	Feedback string

	// CompletionSignal is the token the agent should emit when finished.
	CompletionSignal string

	// TokenBudget bounds the whole prompt, estimated at four bytes per
	// token. Zero disables the final truncation.
	TokenBudget int
}

// Builder renders round prompts.
type Builder struct {
	opts SizeOptions
}

// NewBuilder creates a Builder. Passing nil uses DefaultSizeOptions.
func NewBuilder(opts *SizeOptions) *Builder {
	if opts == nil {
		def := DefaultSizeOptions()
		return &Builder{opts: def}
	}
	return &Builder{opts: *opts}
}

// Build assembles the prompt for one round and bounds it to the token
// budget.
func (b *Builder) Build(in Input) (string, error) {
	if in.Iteration < 1 {
		return "", errors.New("iteration must be at least 1")
	}
	if strings.TrimSpace(in.TaskDescription) == "" && in.Current == nil {
		return "", errors.New("either a task description or a current task is required")
	}

	tier := TierFor(in.Iteration)

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "## Iteration %d of %d\n\n", in.Iteration, in.MaxIterations)

	b.writeTaskSection(&sb, tier, in)
	b.writeFeedbackSection(&sb, tier, in.Feedback)
	b.writeInstructions(&sb, in)

	out := strings.TrimRight(sb.String(), "\n") + "\n"
	return TruncateToTokens(out, in.TokenBudget), nil
}

func (b *Builder) writeTaskSection(sb *strings.Builder, tier RoundTier, in Input) {
	switch tier {
	case TierFull:
		sb.WriteString("## Task\n\n")
		sb.WriteString(strings.TrimSpace(in.TaskDescription))
		sb.WriteString("\n\n")
		if in.Current != nil {
			_, _ = fmt.Fprintf(sb, "### Current Task\n\n%s\n\n", in.Current.Name)
			if len(in.Current.Subtasks) > 0 {
				sb.WriteString("Subtasks:\n")
				for _, st := range in.Current.Subtasks {
					mark := " "
					if st.Completed {
						mark = "x"
					}
					_, _ = fmt.Fprintf(sb, "- [%s] %s\n", mark, st.Name)
				}
				sb.WriteString("\n")
			}
		}

	case TierAbbreviated:
		b.writeCompact(sb, in, b.opts.AbbrevSummaryBytes)

	case TierMinimal:
		b.writeCompact(sb, in, b.opts.MinimalSummaryBytes)
	}
}

// writeCompact renders the abbreviated summary plus the plan-position block
// used on every round after the first.
func (b *Builder) writeCompact(sb *strings.Builder, in Input, summaryBudget int) {
	sb.WriteString("## Task (summary)\n\n")
	sb.WriteString(TruncateBytes(strings.TrimSpace(in.TaskDescription), summaryBudget))
	sb.WriteString("\n\n")

	if in.Snapshot != nil && in.Snapshot.Total > 0 {
		sb.WriteString("### Plan Position\n\n")
		_, _ = fmt.Fprintf(sb, "%d done", in.Snapshot.Completed)
		if in.Current != nil {
			_, _ = fmt.Fprintf(sb, ", current task: %s", in.Current.Name)
			if pending := in.Current.PendingSubtasks(); pending > 0 {
				_, _ = fmt.Fprintf(sb, " (%d subtasks open)", pending)
			}
		}
		_, _ = fmt.Fprintf(sb, ", %d remaining\n\n", in.Snapshot.Pending)
	}
}

func (b *Builder) writeFeedbackSection(sb *strings.Builder, tier RoundTier, feedback string) {
	if strings.TrimSpace(feedback) == "" {
		return
	}

	sb.WriteString("### Validation Feedback\n\n")
	switch tier {
	case TierAbbreviated:
		sb.WriteString(CompressFeedback(feedback, b.opts.AbbrevFeedbackBytes))
	case TierMinimal:
		sb.WriteString(CompressFeedback(feedback, b.opts.MinimalFeedbackBytes))
	default:
		sb.WriteString(feedback)
	}
	sb.WriteString("\n\n")
}

func (b *Builder) writeInstructions(sb *strings.Builder, in Input) {
	sb.WriteString("### Instructions\n\n")
	sb.WriteString("1. Work on the current task only. Keep changes focused.\n")
	sb.WriteString("2. Update the plan file, checking off subtasks as you finish them.\n")
	sb.WriteString("3. Run the project's checks before claiming progress.\n")
	if in.CompletionSignal != "" {
		_, _ = fmt.Fprintf(sb, "4. When every task is verified complete, output %s on its own line.\n", in.CompletionSignal)
	}
}
