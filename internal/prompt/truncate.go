package prompt

import "strings"

// TruncationMarker is appended whenever prompt text is cut.
const TruncationMarker = "... [truncated]"

// bytesPerToken is the estimation ratio used for token budgets.
const bytesPerToken = 4

// EstimateTokens approximates the token count of s.
func EstimateTokens(s string) int {
	return (len(s) + bytesPerToken - 1) / bytesPerToken
}

// TruncateToTokens bounds s to an estimated token budget. A budget of zero
// or less disables truncation.
func TruncateToTokens(s string, tokenBudget int) string {
	if tokenBudget <= 0 {
		return s
	}
	return TruncateBytes(s, tokenBudget*bytesPerToken)
}

// TruncateBytes cuts s to at most limit bytes, preferring the last paragraph
// boundary, then the last line boundary, and a hard cut only as a last
// resort. A boundary is only taken when it falls in the back half of the
// limit, so a cut never lands mid-word when a safe boundary exists there.
// The marker is always appended to a cut result, and the result stays within
// limit, which makes the operation idempotent.
func TruncateBytes(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	if limit <= len(TruncationMarker)+1 {
		return s[:limit]
	}

	avail := limit - len(TruncationMarker) - 1
	cut := s[:avail]
	half := avail / 2

	if idx := strings.LastIndex(cut, "\n\n"); idx >= half {
		cut = cut[:idx]
	} else if idx := strings.LastIndex(cut, "\n"); idx >= half {
		cut = cut[:idx]
	}

	return strings.TrimRight(cut, " \t\n") + "\n" + TruncationMarker
}
