// Package classify maintains the contact classification state machine:
// threshold comparison with hysteresis, confirmation counting against noise
// spikes, and latching of the alarming states.
package classify

import (
	"math"

	"github.com/brakeguard/BladeContactSensor/feature"
)

// Config holds the deployment-tunable thresholds, in volts. Represented
// explicitly so the classifier is testable with injected constants.
type Config struct {
	// ProximityDelta is the baseline offset magnitude that indicates a
	// conductive surface near the blade.
	ProximityDelta float64
	// ContactCollapse is the peak-to-peak level below which the excitation
	// swing is considered collapsed by direct conduction. This is the
	// primary contact discriminant: it proved most reliable for highly
	// conductive surfaces.
	ContactCollapse float64
	// ContactDelta is the secondary contact discriminant: a baseline offset
	// large enough to declare contact even without full signal collapse.
	ContactDelta float64
	// Hysteresis offsets the downward thresholds so readings hovering near
	// a boundary do not chatter.
	Hysteresis float64
	// ConfirmCycles is how many consecutive extraction cycles an upward
	// condition must hold before the transition is taken.
	ConfirmCycles int
	// FaultTimeouts is how many consecutive acquisition timeouts force the
	// Fault state. A timeout means contact is unverifiable; assuming
	// no-contact would be the unsafe guess.
	FaultTimeouts int
	// BaselineAlpha is the EWMA coefficient for slow baseline tracking.
	BaselineAlpha float64
}

// DefaultConfig returns thresholds tuned on the reference hardware.
// Both contact discriminants are exposed for per-deployment calibration.
func DefaultConfig() Config {
	return Config{
		ProximityDelta:  0.25,
		ContactCollapse: 0.5,
		ContactDelta:    1.0,
		Hysteresis:      0.05,
		ConfirmCycles:   2,
		FaultTimeouts:   3,
		BaselineAlpha:   0.02,
	}
}

// historyLen is the number of recent transitions kept for diagnostics.
const historyLen = 10

// Event records one state transition for the diagnostic interface.
type Event struct {
	// Cycle is the extraction cycle index at which the transition happened.
	Cycle uint32
	// State is the state entered.
	State State
}

// Classifier owns the classification state and its baseline. It is the only
// mutation path for both. Update never fails: this subsystem must not halt
// on bad input given its safety role.
type Classifier struct {
	cfg      Config
	baseline *Baseline

	state    State
	upRun    int
	timeouts int
	cycle    uint32

	// Once contact was declared, downgrades stop at Proximity: a momentary
	// sensor recovery must not read as "safe to keep cutting".
	latched bool

	history [historyLen]Event
	histLen int
}

// NewClassifier creates a classifier in NoContact with an unseeded baseline.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{
		cfg:      cfg,
		baseline: NewBaseline(cfg.BaselineAlpha),
	}
}

// State returns the current classification.
func (c *Classifier) State() State {
	return c.state
}

// Baseline returns the classifier-owned baseline.
func (c *Classifier) Baseline() *Baseline {
	return c.baseline
}

// Latched reports whether an alarming state was entered and not yet
// acknowledged.
func (c *Classifier) Latched() bool {
	return c.latched
}

// Update advances the state machine with one feature set and reports the
// new state plus whether a transition happened this cycle.
func (c *Classifier) Update(f feature.Set) (State, bool) {
	c.cycle++
	// A completed extraction means acquisition is alive again.
	c.timeouts = 0

	p2p := clamp(f.PeakToPeak)
	delta := clamp(math.Abs(f.DeltaFromBaseline))

	switch c.state {
	case Fault, Contact:
		if c.state == Contact && p2p > c.cfg.ContactCollapse+c.cfg.Hysteresis && delta < c.cfg.ContactDelta-c.cfg.Hysteresis {
			// Signal recovered, but stay latched at Proximity until the
			// external acknowledgement arrives.
			return c.transition(Proximity), true
		}
		return c.state, false

	case Proximity:
		if delta < c.cfg.ProximityDelta-c.cfg.Hysteresis && !c.latched {
			return c.transition(NoContact), true
		}
		if p2p < c.cfg.ContactCollapse || delta >= c.cfg.ContactDelta {
			c.upRun++
		} else {
			c.upRun = 0
		}
		if c.upRun >= c.cfg.ConfirmCycles {
			return c.transition(Contact), true
		}
		return c.state, false

	default: // NoContact
		if delta >= c.cfg.ProximityDelta {
			c.upRun++
		} else {
			c.upRun = 0
		}
		if c.upRun >= c.cfg.ConfirmCycles {
			return c.transition(Proximity), true
		}
		return c.state, false
	}
}

// RecordTimeout notes one acquisition timeout. After the configured number
// of consecutive timeouts the classifier escalates to Fault and reports the
// transition.
func (c *Classifier) RecordTimeout() (State, bool) {
	c.timeouts++
	if c.timeouts >= c.cfg.FaultTimeouts && c.state != Fault {
		return c.transition(Fault), true
	}
	return c.state, false
}

// Reset is the external acknowledgement: it clears the latches and
// confirmation counters and returns to NoContact. The baseline survives.
func (c *Classifier) Reset() {
	c.state = NoContact
	c.upRun = 0
	c.timeouts = 0
	c.latched = false
}

// History returns the most recent transitions, newest first.
func (c *Classifier) History() []Event {
	out := make([]Event, c.histLen)
	copy(out, c.history[:c.histLen])
	return out
}

func (c *Classifier) transition(next State) State {
	c.state = next
	c.upRun = 0
	if next.Alarming() {
		c.latched = true
	}
	copy(c.history[1:], c.history[:historyLen-1])
	c.history[0] = Event{Cycle: c.cycle, State: next}
	if c.histLen < historyLen {
		c.histLen++
	}
	return next
}

// clamp maps malformed readings (negative or NaN, impossible by
// construction but handled anyway) to zero instead of propagating them.
func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
