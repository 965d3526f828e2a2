// Package cost tracks accumulated agent spend against a configured ceiling.
package cost

import "fmt"

// Meter accumulates per-round agent cost. A ceiling of zero or less means
// unlimited.
type Meter struct {
	ceilingUSD float64
	totalUSD   float64
}

// NewMeter creates a meter with the given ceiling in US dollars.
func NewMeter(ceilingUSD float64) *Meter {
	return &Meter{ceilingUSD: ceilingUSD}
}

// Record adds one round's cost. Negative and zero amounts are ignored so
// agents that don't report cost never move the meter.
func (m *Meter) Record(costUSD float64) {
	if costUSD > 0 {
		m.totalUSD += costUSD
	}
}

// TotalUSD returns the accumulated spend.
func (m *Meter) TotalUSD() float64 {
	return m.totalUSD
}

// CeilingUSD returns the configured ceiling.
func (m *Meter) CeilingUSD() float64 {
	return m.ceilingUSD
}

// OverCeiling reports whether accumulated spend has reached the ceiling.
func (m *Meter) OverCeiling() bool {
	return m.ceilingUSD > 0 && m.totalUSD >= m.ceilingUSD
}

// Summary renders the spend for terminal messages and status output.
func (m *Meter) Summary() string {
	if m.ceilingUSD > 0 {
		return fmt.Sprintf("$%.2f of $%.2f", m.totalUSD, m.ceilingUSD)
	}
	return fmt.Sprintf("$%.2f", m.totalUSD)
}
