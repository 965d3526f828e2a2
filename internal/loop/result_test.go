package loop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitReasonIsValid(t *testing.T) {
	valid := []ExitReason{
		ExitCompleted,
		ExitMaxIterations,
		ExitBlocked,
		ExitCircuitBreaker,
		ExitRateLimit,
		ExitCostCeiling,
		ExitFileSignal,
		ExitPaused,
	}
	for _, reason := range valid {
		assert.True(t, reason.IsValid(), "reason %q", reason)
	}

	assert.False(t, ExitReason("gave_up").IsValid())
	assert.False(t, ExitReason("").IsValid())
}

func TestExitReasonSuccess(t *testing.T) {
	assert.True(t, ExitCompleted.Success())
	assert.True(t, ExitFileSignal.Success())

	for _, reason := range []ExitReason{
		ExitMaxIterations,
		ExitBlocked,
		ExitCircuitBreaker,
		ExitRateLimit,
		ExitCostCeiling,
		ExitPaused,
	} {
		assert.False(t, reason.Success(), "reason %q", reason)
	}
}
