package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brakeguard/BladeContactSensor/acquire"
)

// windowOf builds a window holding the given raw readings.
func windowOf(raw ...uint16) *acquire.Window {
	w := acquire.NewWindow(len(raw))
	for i, r := range raw {
		w.Push(acquire.Sample{Seq: uint32(i + 1), Raw: r})
	}
	return w
}

func TestExtractInsufficientData(t *testing.T) {
	e := NewExtractor(1.0, 8)
	_, err := e.Extract(windowOf(1, 2, 3), 0)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestExtractAlternatingWave(t *testing.T) {
	// 10 samples alternating 0V / 5V: p2p = 5, mean = 2.5.
	e := NewExtractor(1.0, 8)
	w := windowOf(0, 5, 0, 5, 0, 5, 0, 5, 0, 5)

	f, err := e.Extract(w, 2.5)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, f.PeakToPeak, 1e-9)
	assert.InDelta(t, 2.5, f.Mean, 1e-9)
	assert.InDelta(t, 0.0, f.DeltaFromBaseline, 1e-9)
}

func TestExtractDeterministic(t *testing.T) {
	e := NewExtractor(0.001, 4)
	w := windowOf(100, 900, 150, 850, 120, 880, 110, 890)

	f1, err := e.Extract(w, 0.5)
	require.NoError(t, err)
	f2, err := e.Extract(w, 0.5)
	require.NoError(t, err)
	assert.Equal(t, f1, f2, "extraction is a pure function of the window")
}

func TestExtractScale(t *testing.T) {
	// 0.001 V per count.
	e := NewExtractor(0.001, 2)
	w := windowOf(1000, 3000)

	f, err := e.Extract(w, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, f.PeakToPeak, 1e-9)
	assert.InDelta(t, 2.0, f.Mean, 1e-9)
	assert.InDelta(t, 1.0, f.DeltaFromBaseline, 1e-9)
}

func TestExtractAlignedAverages(t *testing.T) {
	// With 4 phase bins, alternating rails land in separate bins: the
	// aligned averages recover the two rails regardless of capture phase.
	e := NewExtractor(1.0, 8)
	w := windowOf(0, 5, 0, 5, 0, 5, 0, 5)

	f, err := e.Extract(w, 0)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, f.HighAvg, 1e-9)
	assert.InDelta(t, 0.0, f.LowAvg, 1e-9)
}

func TestExtractSingleSampleWindow(t *testing.T) {
	e := NewExtractor(1.0, 1)

	f, err := e.Extract(windowOf(3), 3)
	require.NoError(t, err)
	assert.Zero(t, f.PeakToPeak)
	assert.InDelta(t, 3.0, f.Mean, 1e-9)
	assert.InDelta(t, 3.0, f.HighAvg, 1e-9)
	assert.InDelta(t, 3.0, f.LowAvg, 1e-9)
}

func TestExtractFlatWindow(t *testing.T) {
	e := NewExtractor(1.0, 4)
	w := windowOf(3, 3, 3, 3, 3, 3)

	f, err := e.Extract(w, 3)
	require.NoError(t, err)
	assert.Zero(t, f.PeakToPeak)
	assert.InDelta(t, 0.0, f.DeltaFromBaseline, 1e-9)
}
