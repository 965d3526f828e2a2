package loop

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

// BreakerConfig sets the trip thresholds for the circuit breaker.
// A threshold of zero or less disables that condition.
type BreakerConfig struct {
	// MaxConsecutiveFailures trips the breaker after this many failed
	// rounds in a row.
	MaxConsecutiveFailures int
	// MaxDistinctSignatures trips the breaker once this many different
	// failure signatures have been seen over the whole run.
	MaxDistinctSignatures int
}

// DefaultBreakerConfig returns the standard thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxConsecutiveFailures: 3,
		MaxDistinctSignatures:  5,
	}
}

// Breaker stops runs that keep failing the same way. Failures are reduced to
// normalized signatures so the same error with different line numbers or
// addresses still counts as a repeat. Once tripped it stays tripped.
type Breaker struct {
	config              BreakerConfig
	consecutiveFailures int
	totalFailures       int
	signatures          map[string]bool
	tripped             bool
	tripReason          string
}

// BreakerState is a snapshot of the breaker's counters.
type BreakerState struct {
	ConsecutiveFailures int
	TotalFailures       int
	DistinctSignatures  int
	Tripped             bool
}

// NewBreaker creates a breaker with the given thresholds.
func NewBreaker(config BreakerConfig) *Breaker {
	return &Breaker{
		config:     config,
		signatures: make(map[string]bool),
	}
}

// RecordFailure registers one failed round and returns true if the breaker
// is now tripped.
func (b *Breaker) RecordFailure(errorText string) bool {
	b.consecutiveFailures++
	b.totalFailures++
	b.signatures[FailureSignature(errorText)] = true

	if b.tripped {
		return true
	}

	if b.config.MaxConsecutiveFailures > 0 && b.consecutiveFailures >= b.config.MaxConsecutiveFailures {
		b.tripped = true
		b.tripReason = fmt.Sprintf("%d consecutive failures (limit %d)",
			b.consecutiveFailures, b.config.MaxConsecutiveFailures)
		return true
	}

	if b.config.MaxDistinctSignatures > 0 && len(b.signatures) >= b.config.MaxDistinctSignatures {
		b.tripped = true
		b.tripReason = fmt.Sprintf("%d distinct failure signatures (limit %d)",
			len(b.signatures), b.config.MaxDistinctSignatures)
		return true
	}

	return false
}

// RecordSuccess resets the consecutive streak. Total and distinct-signature
// counts survive so a run alternating between failures and successes still
// trips eventually.
func (b *Breaker) RecordSuccess() {
	b.consecutiveFailures = 0
}

// IsTripped returns true once a trip condition has been met.
func (b *Breaker) IsTripped() bool {
	return b.tripped
}

// TripReason describes which threshold tripped the breaker.
func (b *Breaker) TripReason() string {
	return b.tripReason
}

// State returns a copy of the current counters.
func (b *Breaker) State() BreakerState {
	return BreakerState{
		ConsecutiveFailures: b.consecutiveFailures,
		TotalFailures:       b.totalFailures,
		DistinctSignatures:  len(b.signatures),
		Tripped:             b.tripped,
	}
}

var (
	hexRunPattern = regexp.MustCompile(`0x[0-9a-f]+`)
	digitPattern  = regexp.MustCompile(`\d+`)
	spacePattern  = regexp.MustCompile(`\s+`)
)

// FailureSignature normalizes error text and hashes it so noisy details
// (line numbers, addresses, durations) do not make every failure look new.
func FailureSignature(errorText string) string {
	normalized := strings.ToLower(errorText)
	normalized = hexRunPattern.ReplaceAllString(normalized, "0x#")
	normalized = digitPattern.ReplaceAllString(normalized, "#")
	normalized = spacePattern.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)
	if len(normalized) > 200 {
		normalized = normalized[:200]
	}

	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hash[:8])
}
