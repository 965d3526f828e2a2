package classify

import "strings"

// BlockKind sub-classifies a blocked output for user-facing messaging.
type BlockKind string

const (
	BlockRateLimited BlockKind = "rate_limited"
	BlockPermission  BlockKind = "permission"
	BlockGeneric     BlockKind = "generic"
)

var rateLimitHints = []string{
	"rate limit",
	"usage limit",
	"too many requests",
	"quota exceeded",
	"overloaded",
	"429",
}

var permissionHints = []string{
	"permission denied",
	"permission required",
	"not authorized",
	"unauthorized",
	"forbidden",
	"access denied",
	"requires approval",
}

// ClassifyBlock inspects blocked output text and picks the closest kind.
// Rate-limit hints win over permission hints since retrying later can clear
// them without user action.
func ClassifyBlock(output string) BlockKind {
	lower := strings.ToLower(output)

	for _, hint := range rateLimitHints {
		if strings.Contains(lower, hint) {
			return BlockRateLimited
		}
	}
	for _, hint := range permissionHints {
		if strings.Contains(lower, hint) {
			return BlockPermission
		}
	}
	return BlockGeneric
}

// Hint renders a short remediation note for the kind.
func (k BlockKind) Hint() string {
	switch k {
	case BlockRateLimited:
		return "the agent reported a rate or usage limit; wait and resume later"
	case BlockPermission:
		return "the agent was denied a permission it needs; adjust allowed tools or credentials"
	default:
		return "the agent reported it cannot make progress; inspect the last round output"
	}
}
