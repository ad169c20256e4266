// Package pipeline ties the detection stages together: sampler fills the
// window, the extractor reduces it, the classifier decides, the emitter
// acts. Single-threaded by design; every piece of mutable state is owned by
// exactly one stage and reached only through the pipeline value.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/brakeguard/BladeContactSensor/acquire"
	"github.com/brakeguard/BladeContactSensor/classify"
	"github.com/brakeguard/BladeContactSensor/diag"
	"github.com/brakeguard/BladeContactSensor/emit"
	"github.com/brakeguard/BladeContactSensor/feature"
)

// Config sizes the acquisition window.
type Config struct {
	// WindowSize is the sample window capacity.
	WindowSize int
	// Refill is how many conversions each cycle pushes into the window.
	WindowRefill int
	// CountersEvery emits a cumulative counters record every N cycles.
	// Zero disables periodic counter records.
	CountersEvery uint32
}

// DefaultConfig returns the window sizing used on the reference hardware:
// sixteen excitation cycles of oversampled points, a quarter refreshed per
// detection cycle.
func DefaultConfig() Config {
	return Config{
		WindowSize:    16 * acquire.SamplesPerCycle,
		WindowRefill:  4 * acquire.SamplesPerCycle,
		CountersEvery: 250,
	}
}

// Pipeline runs the detection stages over one shared window.
type Pipeline struct {
	cfg      Config
	sampler  *acquire.Sampler
	window   *acquire.Window
	ext      feature.Extractor
	cls      *classify.Classifier
	emitter  *emit.Emitter
	counters diag.Counters
	cycle    uint32
}

// New assembles a pipeline from its stages.
func New(cfg Config, sampler *acquire.Sampler, ext feature.Extractor, cls *classify.Classifier, emitter *emit.Emitter) *Pipeline {
	if cfg.WindowSize <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.WindowRefill <= 0 {
		cfg.WindowRefill = cfg.WindowSize
	}
	return &Pipeline{
		cfg:     cfg,
		sampler: sampler,
		window:  acquire.NewWindow(cfg.WindowSize),
		ext:     ext,
		cls:     cls,
		emitter: emitter,
	}
}

// Cycle runs one acquisition-to-emission pass.
//
// Recoverable conditions are absorbed here: an under-filled window skips
// classification for the cycle, and each occurrence is counted so sustained
// conditions stay observable. Acquisition timeouts are hard faults: counted,
// recorded with the classifier (which escalates to Fault when they repeat),
// and returned to the caller.
func (p *Pipeline) Cycle() error {
	p.cycle++

	if err := p.sampler.FillWindow(p.window, p.cfg.WindowRefill); err != nil {
		if errors.Is(err, acquire.ErrAcquisitionTimeout) {
			p.counters.Timeouts++
			state, _ := p.cls.RecordTimeout()
			if emitErr := p.emitter.Observe(p.cycle, state); emitErr != nil {
				return errors.Join(err, emitErr)
			}
			return err
		}
		return fmt.Errorf("FillWindow failed: %w", err)
	}

	baseline := p.cls.Baseline()
	f, err := p.ext.Extract(p.window, baseline.Mean())
	if err != nil {
		if errors.Is(err, feature.ErrInsufficientData) {
			p.counters.Insufficient++
			return nil
		}
		return fmt.Errorf("Extract failed: %w", err)
	}

	if !baseline.Seeded() {
		// Calibration phase: accumulate no-contact means, no classification.
		baseline.Observe(f.Mean)
		return nil
	}

	state, _ := p.cls.Update(f)
	if state == classify.NoContact {
		baseline.Observe(f.Mean)
	}

	if err := p.emitter.Observe(p.cycle, state); err != nil {
		return err
	}

	p.emitter.Record(diag.Features(p.cycle, state, f))
	if p.cfg.CountersEvery > 0 && p.cycle%p.cfg.CountersEvery == 0 {
		p.emitter.Record(diag.CounterSnapshot(p.cycle, state, p.Counters()))
	}
	return nil
}

// State returns the current classification.
func (p *Pipeline) State() classify.State {
	return p.cls.State()
}

// Counters returns the cumulative recoverable-fault counters.
func (p *Pipeline) Counters() diag.Counters {
	c := p.counters
	c.SinkDrops = p.emitter.SinkDrops()
	c.Rearms = p.cls.Baseline().Rearms()
	return c
}

// Classifier exposes the classifier for the external status interface.
func (p *Pipeline) Classifier() *classify.Classifier {
	return p.cls
}

// Reset performs the external acknowledgement: classifier latches clear and
// the emitter releases its held assertion.
func (p *Pipeline) Reset() {
	p.cls.Reset()
	p.emitter.Acknowledge()
}
