// Package emit surfaces classifier state transitions to the actuator
// interface. Emission is deduplicated on the last state actually delivered:
// one event per state change, never one per cycle, and a state whose
// delivery failed is retried on the next cycle until the actuator accepts
// it.
package emit

import (
	"fmt"

	"github.com/brakeguard/BladeContactSensor/classify"
	"github.com/brakeguard/BladeContactSensor/diag"
)

// Actuator receives one discrete event per classifier state transition and
// is responsible for any physical braking action.
type Actuator interface {
	Signal(s classify.State) error
}

// Emitter deduplicates and latches state emission.
type Emitter struct {
	act  Actuator
	sink diag.Sink // optional

	last     classify.State
	haveLast bool
	latched  bool

	sinkDrops uint32
}

// New creates an emitter. sink may be nil.
func New(act Actuator, sink diag.Sink) *Emitter {
	return &Emitter{
		act:  act,
		sink: sink,
	}
}

// Observe processes the classifier output for one detection cycle; cycle is
// the pipeline cycle index, carried into the diagnostic record. The state is
// forwarded to the actuator only when it differs from the last state the
// actuator accepted, so a delivery that failed is retried on the next cycle
// rather than lost. Once an alarming state has been emitted, downgrades are
// suppressed until Acknowledge: a momentary sensor recovery must not be
// interpreted as safe to keep cutting.
//
// Actuator errors are returned to the caller; sink errors are only counted.
func (e *Emitter) Observe(cycle uint32, s classify.State) error {
	if e.haveLast && s == e.last {
		return nil
	}
	if e.latched && !s.Alarming() {
		// Held by the latch; the external reset will release it.
		return nil
	}

	if err := e.act.Signal(s); err != nil {
		return fmt.Errorf("actuator signal failed: %w", err)
	}
	if s.Alarming() {
		e.latched = true
	}
	e.last = s
	e.haveLast = true

	e.record(diag.Transition(cycle, s))
	return nil
}

// Acknowledge is the explicit external reset releasing a latched emission.
// The next Observe may then emit a downgraded state.
func (e *Emitter) Acknowledge() {
	e.latched = false
	e.haveLast = false
}

// Latched reports whether an alarming emission is being held.
func (e *Emitter) Latched() bool {
	return e.latched
}

// SinkDrops returns the number of diagnostic records lost to sink errors.
func (e *Emitter) SinkDrops() uint32 {
	return e.sinkDrops
}

// Record forwards a diagnostic record through the emitter's sink, applying
// the same never-blocking policy as transition records.
func (e *Emitter) Record(r diag.Record) {
	e.record(r)
}

func (e *Emitter) record(r diag.Record) {
	if e.sink == nil {
		return
	}
	if err := e.sink.Write(r); err != nil {
		e.sinkDrops++
	}
}
