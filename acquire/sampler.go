// Package acquire captures periodic analog readings of the blade return
// signal, synchronized loosely to the excitation period so that a window of
// samples spans full wave cycles rather than a single phase point.
package acquire

import (
	"errors"
	"fmt"
	"time"
)

// Converter is the single-shot conversion surface of an ADC backend.
// Both the on-chip ADC wrapper and the external ADS1115 implement it.
type Converter interface {
	// Start begins a single conversion.
	Start() error
	// Busy returns true while a conversion is ongoing.
	Busy() (bool, error)
	// Result returns the most recent conversion value in raw counts.
	Result() (uint16, error)
}

// ErrAcquisitionTimeout is returned when a conversion does not complete
// within the configured deadline. Callers must not silently retry: a stalled
// conversion on this sensor is a hard fault, not a transient.
var ErrAcquisitionTimeout = errors.New("acquisition timeout")

const (
	// DefaultDeadline bounds the wait for a single conversion.
	DefaultDeadline = time.Millisecond * 2
	// DefaultPoll is the sleep between busy checks.
	DefaultPoll = time.Microsecond * 50
	// SamplesPerCycle is the oversampling factor relative to the excitation
	// period. Four phase points per cycle resolve both rails and the
	// transitions, so the window captures the full swing and its offset,
	// not merely a DC average.
	SamplesPerCycle = 4
)

// Config holds the sampling timing parameters.
type Config struct {
	// Deadline is the maximum wait for one conversion. Zero selects
	// DefaultDeadline.
	Deadline time.Duration
	// Poll is the sleep between busy checks. Zero selects DefaultPoll.
	Poll time.Duration
	// Interval is the fixed inter-sample spacing used by FillWindow.
	// Zero means back-to-back conversions, which is what free-running
	// hardware uses.
	Interval time.Duration
}

// IntervalFor returns the inter-sample interval that yields perCycle
// evenly spaced samples for the given excitation frequency.
func IntervalFor(frequencyHz uint32, perCycle int) time.Duration {
	if frequencyHz == 0 || perCycle <= 0 {
		return 0
	}
	return time.Second / time.Duration(uint64(frequencyHz)*uint64(perCycle))
}

// Sampler performs bounded-latency conversions and fills sample windows.
type Sampler struct {
	conv Converter
	cfg  Config
	seq  uint32
}

// NewSampler creates a sampler reading from the given converter.
func NewSampler(conv Converter, cfg Config) *Sampler {
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultPoll
	}
	return &Sampler{
		conv: conv,
		cfg:  cfg,
	}
}

// SampleOnce performs one conversion and returns the sample. It blocks for
// at most the configured deadline and fails with ErrAcquisitionTimeout if
// the conversion does not complete in time.
func (s *Sampler) SampleOnce() (Sample, error) {
	if err := s.conv.Start(); err != nil {
		return Sample{}, fmt.Errorf("Start failed: %w", err)
	}
	start := time.Now()
	for {
		busy, err := s.conv.Busy()
		if err != nil {
			return Sample{}, fmt.Errorf("Busy failed: %w", err)
		}
		if !busy {
			// Conversion is ready
			break
		}
		if time.Since(start) >= s.cfg.Deadline {
			return Sample{}, ErrAcquisitionTimeout
		}
		time.Sleep(s.cfg.Poll)
	}
	raw, err := s.conv.Result()
	if err != nil {
		return Sample{}, fmt.Errorf("Result failed: %w", err)
	}
	s.seq++
	return Sample{Seq: s.seq, Raw: raw}, nil
}

// FillWindow samples count times at the configured inter-sample interval,
// pushing into the window and evicting the oldest entries once full.
// The first error aborts the fill; samples captured before it remain in the
// window.
func (s *Sampler) FillWindow(w *Window, count int) error {
	for i := 0; i < count; i++ {
		smp, err := s.SampleOnce()
		if err != nil {
			return err
		}
		w.Push(smp)
		if s.cfg.Interval > 0 && i < count-1 {
			time.Sleep(s.cfg.Interval)
		}
	}
	return nil
}
