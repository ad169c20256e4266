package classify

import (
	"github.com/MicahParks/peakdetect"
)

const (
	// baselineSeedLen is the number of no-contact window means averaged to
	// seed the baseline during the calibration phase.
	baselineSeedLen = 8
	// driftRunLen is the number of consecutive out-of-band means required
	// before the baseline is considered drifted and re-armed.
	driftRunLen = 5
	// driftInfluence and driftThreshold parameterize the z-score detector
	// watching recent means for a sustained level shift.
	driftInfluence = 0.1
	driftThreshold = 3.5
)

// Baseline is the reference mean voltage captured under known no-contact
// conditions. It is seeded from the first full windows after startup, then
// tracks slow ambient drift with an EWMA while the classifier reports
// NoContact. A sustained level shift detected by the z-score peak detector
// re-arms the calibration phase instead of being absorbed silently.
type Baseline struct {
	mean   float64
	alpha  float64
	seeded bool

	seedBuf []float64

	drift      peakdetect.PeakDetector
	driftReady bool
	driftRun   int
	rearms     uint32
}

// NewBaseline creates an unseeded baseline with the given EWMA coefficient.
func NewBaseline(alpha float64) *Baseline {
	return &Baseline{
		alpha: alpha,
	}
}

// Seeded reports whether the calibration phase has completed.
func (b *Baseline) Seeded() bool {
	return b.seeded
}

// Mean returns the current baseline mean voltage. Zero until seeded.
func (b *Baseline) Mean() float64 {
	return b.mean
}

// Rearms returns how many times drift forced recalibration.
func (b *Baseline) Rearms() uint32 {
	return b.rearms
}

// Seed forces the baseline to the given mean and ends the calibration
// phase. Used by tests and by deployments with a stored calibration.
func (b *Baseline) Seed(mean float64) {
	b.mean = mean
	b.seeded = true
	b.seedBuf = nil
	b.driftReady = false
	b.driftRun = 0
}

// Observe feeds one window mean recorded under no-contact conditions.
// During calibration it accumulates seeds; once seeded it slowly tracks the
// mean. Returns true when a sustained drift was detected and the baseline
// was re-armed, meaning the caller should treat the calibration as restarted.
func (b *Baseline) Observe(mean float64) bool {
	if !b.seeded {
		b.seedBuf = append(b.seedBuf, mean)
		if len(b.seedBuf) < baselineSeedLen {
			return false
		}
		sum := 0.0
		for _, v := range b.seedBuf {
			sum += v
		}
		b.mean = sum / float64(len(b.seedBuf))
		b.seeded = true

		detector := peakdetect.NewPeakDetector()
		if err := detector.Initialize(driftInfluence, driftThreshold, b.seedBuf); err == nil {
			b.drift = detector
			b.driftReady = true
		}
		b.seedBuf = nil
		b.driftRun = 0
		return false
	}

	b.mean += b.alpha * (mean - b.mean)

	if b.driftReady {
		if b.drift.Next(mean) != peakdetect.SignalNeutral {
			b.driftRun++
		} else {
			b.driftRun = 0
		}
		if b.driftRun >= driftRunLen {
			// Sustained level shift: restart calibration.
			b.seeded = false
			b.driftReady = false
			b.driftRun = 0
			b.seedBuf = nil
			b.rearms++
			return true
		}
	}
	return false
}
