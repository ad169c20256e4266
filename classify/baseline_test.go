package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedValues are realistic no-contact window means with a little noise so
// the drift detector sees a non-degenerate population.
var seedValues = []float64{2.50, 2.51, 2.49, 2.50, 2.52, 2.48, 2.50, 2.51}

func seededBaseline(t *testing.T) *Baseline {
	t.Helper()
	b := NewBaseline(0.02)
	for _, v := range seedValues {
		require.False(t, b.Observe(v))
	}
	require.True(t, b.Seeded())
	return b
}

func TestBaselineSeedsAfterCalibration(t *testing.T) {
	b := NewBaseline(0.02)
	assert.False(t, b.Seeded())
	assert.Zero(t, b.Mean())

	for i, v := range seedValues {
		b.Observe(v)
		if i < len(seedValues)-1 {
			require.False(t, b.Seeded(), "must not seed before %d means", len(seedValues))
		}
	}
	require.True(t, b.Seeded())
	assert.InDelta(t, 2.50125, b.Mean(), 1e-9)
}

func TestBaselineTracksSlowDrift(t *testing.T) {
	b := seededBaseline(t)
	start := b.Mean()

	// A small step is absorbed by the EWMA, not flagged as drift.
	for i := 0; i < 20; i++ {
		require.False(t, b.Observe(2.53))
	}
	assert.Greater(t, b.Mean(), start)
	assert.Less(t, b.Mean(), 2.53)
	assert.True(t, b.Seeded())
	assert.Zero(t, b.Rearms())
}

func TestBaselineRearmsOnSustainedShift(t *testing.T) {
	b := seededBaseline(t)

	// A full volt of sustained shift cannot be honest ambient drift.
	rearmed := false
	for i := 0; i < 10 && !rearmed; i++ {
		rearmed = b.Observe(3.5)
	}
	require.True(t, rearmed)
	assert.False(t, b.Seeded(), "re-arm restarts the calibration phase")
	assert.Equal(t, uint32(1), b.Rearms())

	// The next calibration round seeds at the new level.
	for _, v := range seedValues {
		b.Observe(v + 1.0)
	}
	require.True(t, b.Seeded())
	assert.InDelta(t, 3.50125, b.Mean(), 1e-9)
}

func TestBaselineSeedShortcut(t *testing.T) {
	b := NewBaseline(0.02)
	b.Seed(2.5)
	assert.True(t, b.Seeded())
	assert.Equal(t, 2.5, b.Mean())
}
