package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeterAccumulates(t *testing.T) {
	m := NewMeter(10.0)

	m.Record(1.25)
	m.Record(2.50)

	assert.InDelta(t, 3.75, m.TotalUSD(), 0.0001)
	assert.False(t, m.OverCeiling())
}

func TestMeterIgnoresNonPositiveCost(t *testing.T) {
	m := NewMeter(10.0)

	m.Record(0)
	m.Record(-5)

	assert.Zero(t, m.TotalUSD())
}

func TestMeterOverCeiling(t *testing.T) {
	m := NewMeter(1.0)

	m.Record(0.5)
	assert.False(t, m.OverCeiling())

	m.Record(0.5)
	assert.True(t, m.OverCeiling(), "reaching the ceiling exactly counts as over")
}

func TestMeterUnlimitedWhenNoCeiling(t *testing.T) {
	m := NewMeter(0)

	m.Record(1000)
	assert.False(t, m.OverCeiling())
}

func TestMeterSummary(t *testing.T) {
	capped := NewMeter(5.0)
	capped.Record(1.5)
	assert.Equal(t, "$1.50 of $5.00", capped.Summary())

	uncapped := NewMeter(0)
	uncapped.Record(1.5)
	assert.Equal(t, "$1.50", uncapped.Summary())
}
