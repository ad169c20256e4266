// Package feature reduces a window of return-signal samples to the scalar
// features the classifier decides on. Extraction is a pure function of the
// window contents: no hidden state, fully deterministic.
package feature

import (
	"errors"

	"github.com/brakeguard/BladeContactSensor/acquire"
)

// ErrInsufficientData is returned when the window does not yet cover at
// least one full excitation cycle. Recoverable: skip this cycle and retry
// once more samples have been captured.
var ErrInsufficientData = errors.New("insufficient samples in window")

// Set holds the features derived from one sample window, in volts.
// Ephemeral: recomputed each cycle, never mutated in place.
type Set struct {
	// PeakToPeak is max minus min reading over the window.
	PeakToPeak float64
	// Mean is the arithmetic mean of all readings.
	Mean float64
	// DeltaFromBaseline is Mean minus the no-contact baseline mean.
	// Proximity to a conductive surface shifts the whole waveform's offset,
	// which is why the absolute level is tracked alongside the swing.
	DeltaFromBaseline float64
	// HighAvg and LowAvg are the phase-aligned averages of the upper and
	// lower halves of the excitation wave.
	HighAvg float64
	LowAvg  float64
}

// Extractor converts raw ADC counts into feature sets.
type Extractor struct {
	// Scale is the ADC conversion factor in volts per count.
	Scale float64
	// MinSamples is the minimum window length required by Extract.
	// Must cover at least one full excitation cycle of oversampled points.
	MinSamples int
	// PhaseBins is the number of interleaved partial sums used for the
	// aligned high/low averages. Matches the oversampling factor.
	PhaseBins int
}

// NewExtractor returns an extractor for the given ADC scale, requiring
// minSamples per window and using the standard oversampling phase count.
func NewExtractor(scale float64, minSamples int) Extractor {
	return Extractor{
		Scale:      scale,
		MinSamples: minSamples,
		PhaseBins:  acquire.SamplesPerCycle,
	}
}

// Extract reduces the window into a feature set against the given baseline
// mean (volts). Fails with ErrInsufficientData when the window is shorter
// than MinSamples.
func (e Extractor) Extract(w *acquire.Window, baseline float64) (Set, error) {
	n := w.Len()
	min := e.MinSamples
	if min < 1 {
		min = 1
	}
	if n < min {
		return Set{}, ErrInsufficientData
	}

	lo := w.At(0).Raw
	hi := lo
	sum := uint64(0)
	for i := 0; i < n; i++ {
		raw := w.At(i).Raw
		if raw < lo {
			lo = raw
		}
		if raw > hi {
			hi = raw
		}
		sum += uint64(raw)
	}
	mean := float64(sum) / float64(n) * e.Scale

	high, low := e.alignedAverages(w, n)
	return Set{
		PeakToPeak:        float64(hi-lo) * e.Scale,
		Mean:              mean,
		DeltaFromBaseline: mean - baseline,
		HighAvg:           high * e.Scale,
		LowAvg:            low * e.Scale,
	}, nil
}

// alignedAverages splits the window into PhaseBins interleaved partial sums
// and averages the upper half against the lower half. With the sampling
// cadence phase-related to the excitation period, the highest partial sums
// line up with the high rail of the wave regardless of where in the cycle
// capture started.
func (e Extractor) alignedAverages(w *acquire.Window, n int) (high, low float64) {
	if n < 2 {
		// A single reading is both rails at once.
		v := float64(w.At(0).Raw)
		return v, v
	}
	bins := e.PhaseBins
	if bins > n {
		bins = n
	}
	if bins < 2 {
		bins = 2
	}

	sums := make([]float64, bins)
	counts := make([]int, bins)
	for i := 0; i < n; i++ {
		sums[i%bins] += float64(w.At(i).Raw)
		counts[i%bins]++
	}
	avgs := make([]float64, bins)
	for i := range sums {
		avgs[i] = sums[i] / float64(counts[i])
	}

	// Selection sort is fine for the handful of phase bins involved.
	for i := 0; i < bins-1; i++ {
		for j := i + 1; j < bins; j++ {
			if avgs[j] > avgs[i] {
				avgs[i], avgs[j] = avgs[j], avgs[i]
			}
		}
	}

	half := bins / 2
	for i := 0; i < half; i++ {
		high += avgs[i]
	}
	for i := half; i < bins; i++ {
		low += avgs[i]
	}
	return high / float64(half), low / float64(bins-half)
}
