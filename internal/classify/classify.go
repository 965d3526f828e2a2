// Package classify scores agent output as done, blocked, or continue.
package classify

import (
	"fmt"
	"math"
	"strings"
)

// Verdict is the outcome of classifying one round of agent output.
type Verdict string

const (
	VerdictDone     Verdict = "done"
	VerdictBlocked  Verdict = "blocked"
	VerdictContinue Verdict = "continue"
)

var validVerdicts = map[Verdict]bool{
	VerdictDone:     true,
	VerdictBlocked:  true,
	VerdictContinue: true,
}

// IsValid returns true if the verdict is a known value.
func (v Verdict) IsValid() bool {
	return validVerdicts[v]
}

// Confidence grades how decisive the heuristic scores were.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Machine-readable completion signals an agent can emit.
const (
	// CompletionTag marks the whole run as finished.
	CompletionTag = "[DROVER-COMPLETE]"

	// ExitSignal is the bare exit announcement. Policies may require
	// corroborating indicators before trusting it.
	ExitSignal = "ALL_TASKS_DONE"
)

// DefaultMinIndicators is the indicator count required for a heuristic
// Done verdict when the policy does not set one.
const DefaultMinIndicators = 2

const (
	completionThreshold = 0.7
	stuckThreshold      = 0.7
)

// Policy holds the per-run completion options.
type Policy struct {
	// Token is an exact custom completion token. Empty disables the check.
	Token string

	// RequireExitSignal demands the exit signal plus corroborating
	// indicators before a heuristic Done.
	RequireExitSignal bool

	// MinIndicators is the minimum completion-rule match count for a
	// heuristic Done. Zero means DefaultMinIndicators.
	MinIndicators int
}

// Result is the full classification outcome for one output.
type Result struct {
	Verdict         Verdict
	Reason          string
	Confidence      Confidence
	CompletionScore float64
	StuckScore      float64
	Indicators      int
}

// Classify evaluates agent output against the policy. It is a pure function
// of its arguments. Checks run cheapest first but form a single priority
// list: explicit machine signals outrank fixed phrases, which outrank
// heuristic scoring, and a weak stuck reading outranks a weak completion
// reading.
func Classify(output string, policy Policy) Result {
	lower := strings.ToLower(output)

	if policy.Token != "" && strings.Contains(output, policy.Token) {
		return machineDone("custom completion token present")
	}

	if strings.Contains(output, CompletionTag) {
		return machineDone("completion tag present")
	}

	if !policy.RequireExitSignal && strings.Contains(output, ExitSignal) {
		return machineDone("exit signal present")
	}

	for _, phrase := range completionPhrases {
		if strings.Contains(lower, phrase) {
			return machineDone(fmt.Sprintf("completion phrase %q present", phrase))
		}
	}

	for _, phrase := range blockedPhrases {
		if strings.Contains(lower, phrase) {
			return Result{
				Verdict:    VerdictBlocked,
				Reason:     fmt.Sprintf("blocked phrase %q present", phrase),
				Confidence: ConfidenceHigh,
			}
		}
	}

	completion, stuck, indicators := Score(output)

	res := Result{
		Verdict:         VerdictContinue,
		Confidence:      confidenceFor(completion, stuck),
		CompletionScore: completion,
		StuckScore:      stuck,
		Indicators:      indicators,
	}

	if stuck >= stuckThreshold && res.Confidence != ConfidenceLow {
		res.Verdict = VerdictBlocked
		res.Reason = fmt.Sprintf("stuck score %.2f at %s confidence", stuck, res.Confidence)
		return res
	}

	minIndicators := policy.MinIndicators
	if minIndicators <= 0 {
		minIndicators = DefaultMinIndicators
	}

	if policy.RequireExitSignal {
		if strings.Contains(output, ExitSignal) && indicators >= minIndicators {
			res.Verdict = VerdictDone
			res.Reason = fmt.Sprintf("exit signal corroborated by %d indicators", indicators)
			return res
		}
		res.Reason = "exit signal required but not corroborated"
		return res
	}

	if completion >= completionThreshold && indicators >= minIndicators {
		res.Verdict = VerdictDone
		res.Reason = fmt.Sprintf("completion score %.2f with %d indicators", completion, indicators)
		return res
	}

	res.Reason = "no decisive signal"
	return res
}

// Score folds the output over the scoring rule table and returns the capped
// completion and stuck scores plus the completion indicator count.
func Score(output string) (completion, stuck float64, indicators int) {
	for _, rule := range ScoringRules {
		if !rule.Pattern.MatchString(output) {
			continue
		}
		switch rule.Category {
		case CategoryCompletion:
			completion += rule.Weight
			indicators++
		case CategoryStuck:
			stuck += rule.Weight
		}
	}
	completion = math.Min(completion, 1.0)
	stuck = math.Min(stuck, 1.0)
	return completion, stuck, indicators
}

// confidenceFor grades the score pair by gap and extremity. Two far-apart or
// extreme scores read as decisive; two close, middling scores do not.
func confidenceFor(completion, stuck float64) Confidence {
	gap := math.Abs(completion - stuck)
	peak := math.Max(completion, stuck)

	switch {
	case gap >= 0.4 && peak >= 0.7:
		return ConfidenceHigh
	case gap >= 0.2 || peak >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func machineDone(reason string) Result {
	return Result{
		Verdict:    VerdictDone,
		Reason:     reason,
		Confidence: ConfidenceHigh,
	}
}
