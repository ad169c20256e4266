// Package excite drives the blade excitation signal: a continuous square
// wave on a hardware PWM channel at a fixed target frequency.
package excite

import (
	"errors"
	"fmt"
)

// Slice is the subset of a hardware PWM peripheral used by the Generator.
// It is modeled on the TinyGo machine.PWM slice surface.
type Slice interface {
	// SetPeriod updates the period of this PWM peripheral in nanoseconds.
	// To set a particular frequency, use the following formula:
	//
	//	period = 1e9 / frequency
	//
	// Where frequency is in hertz.
	SetPeriod(period uint64) error
	// Period returns the actually configured period in nanoseconds, which
	// may differ from the requested period due to clock division limits.
	Period() uint64
	// Top returns the current counter top, for use in duty cycle calculation.
	Top() uint32
	// Set updates the channel value. This controls the channel duty
	// cycle, in other words the fraction of time the channel output is high.
	Set(channel uint8, value uint32)
	// Enable enables or disables PWM peripheral channels.
	Enable(enable bool)
}

// ErrConfig is returned when the requested excitation configuration cannot
// be produced by the underlying PWM clock within the allowed tolerance.
var ErrConfig = errors.New("excitation config not achievable")

const (
	// DefaultFrequencyHz is the detection signal frequency.
	DefaultFrequencyHz = 100_000
	// DefaultDutyCycle keeps the square wave symmetric.
	DefaultDutyCycle = 0.5
	// DefaultTolerance is the maximum relative frequency deviation accepted
	// before Start fails with ErrConfig.
	DefaultTolerance = 0.01
)

// Config holds the excitation parameters. Immutable once passed to New.
type Config struct {
	// FrequencyHz is the target square wave frequency. Must be > 0.
	FrequencyHz uint32
	// DutyCycle is the high fraction of each period, in (0, 1).
	DutyCycle float32
	// Tolerance is the maximum relative frequency deviation. Zero selects
	// DefaultTolerance.
	Tolerance float64
}

// DefaultConfig returns the excitation configuration used by the blade
// sensor hardware.
func DefaultConfig() Config {
	return Config{
		FrequencyHz: DefaultFrequencyHz,
		DutyCycle:   DefaultDutyCycle,
		Tolerance:   DefaultTolerance,
	}
}

// Generator produces the excitation square wave on a single PWM channel.
// It never reads back the signal it drives.
type Generator struct {
	slice   Slice
	channel uint8
	cfg     Config
	running bool
}

// New prepares a generator on the given slice & channel.
// The slice is not touched until Start is called.
func New(slice Slice, channel uint8, cfg Config) *Generator {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return &Generator{
		slice:   slice,
		channel: channel,
		cfg:     cfg,
	}
}

// Start begins continuous generation. It fails with ErrConfig if the
// requested frequency cannot be represented by the available clock division
// within the configured tolerance; in that case the output stays disabled
// rather than running at an unverified frequency.
func (g *Generator) Start() error {
	if g.cfg.FrequencyHz == 0 {
		return fmt.Errorf("%w: frequency must be > 0", ErrConfig)
	}
	if g.cfg.DutyCycle <= 0 || g.cfg.DutyCycle >= 1 {
		return fmt.Errorf("%w: duty cycle %v outside (0, 1)", ErrConfig, g.cfg.DutyCycle)
	}

	want := uint64(1e9) / uint64(g.cfg.FrequencyHz)
	if err := g.slice.SetPeriod(want); err != nil {
		return fmt.Errorf("%w: SetPeriod failed: %v", ErrConfig, err)
	}
	got := g.slice.Period()
	if deviation(want, got) > g.cfg.Tolerance {
		g.slice.Enable(false)
		return fmt.Errorf("%w: want period %d ns, got %d ns", ErrConfig, want, got)
	}

	g.slice.Set(g.channel, uint32(float64(g.slice.Top())*float64(g.cfg.DutyCycle)))
	g.slice.Enable(true)
	g.running = true
	return nil
}

// Stop halts generation deterministically: the channel is forced to its
// idle (low) level before the slice is disabled, so the output is never
// left floating mid-cycle.
func (g *Generator) Stop() {
	g.slice.Set(g.channel, 0)
	g.slice.Enable(false)
	g.running = false
}

// Running reports whether the generator has been started.
func (g *Generator) Running() bool {
	return g.running
}

// Config returns the configuration the generator was created with.
func (g *Generator) Config() Config {
	return g.cfg
}

func deviation(want, got uint64) float64 {
	diff := int64(got) - int64(want)
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(want)
}
