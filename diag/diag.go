// Package diag defines the diagnostic records surfaced by the firmware and
// the compact frame format used to ship them over a serial link to a host.
// Diagnostics are strictly best-effort: a failing sink must never block or
// fail the detection pipeline.
package diag

import (
	"github.com/brakeguard/BladeContactSensor/classify"
	"github.com/brakeguard/BladeContactSensor/feature"
)

// Kind discriminates diagnostic records.
type Kind uint8

const (
	// KindTransition reports a classifier state transition.
	KindTransition Kind = iota + 1
	// KindFeatures reports the feature set of one extraction cycle.
	KindFeatures
	// KindCounters reports the cumulative fault counters.
	KindCounters
)

// Counters tracks recoverable fault observations. Exposed externally so a
// sustained fault condition is observable even though individual events are
// handled in-line.
type Counters struct {
	// Timeouts counts acquisition timeouts.
	Timeouts uint32
	// Insufficient counts cycles skipped for lack of window data.
	Insufficient uint32
	// SinkDrops counts diagnostic records lost to sink errors.
	SinkDrops uint32
	// Rearms counts baseline recalibrations forced by drift.
	Rearms uint32
}

// Record is a single diagnostic datum. All voltage fields are quantized to
// millivolts for the wire.
type Record struct {
	Kind  Kind
	Cycle uint32
	State classify.State

	PeakToPeakMilliV uint16
	MeanMilliV       uint16
	DeltaMilliV      int16

	Timeouts     uint16
	Insufficient uint16
	SinkDrops    uint16
	Rearms       uint16
}

// Sink receives diagnostic records. Implementations must be cheap; the
// pipeline counts errors but never retries or propagates them.
type Sink interface {
	Write(Record) error
}

// Transition builds a transition record.
func Transition(cycle uint32, state classify.State) Record {
	return Record{
		Kind:  KindTransition,
		Cycle: cycle,
		State: state,
	}
}

// Features builds a features record from one extraction cycle.
func Features(cycle uint32, state classify.State, f feature.Set) Record {
	return Record{
		Kind:             KindFeatures,
		Cycle:            cycle,
		State:            state,
		PeakToPeakMilliV: toMilliV(f.PeakToPeak),
		MeanMilliV:       toMilliV(f.Mean),
		DeltaMilliV:      toMilliVSigned(f.DeltaFromBaseline),
	}
}

// CounterSnapshot builds a counters record.
func CounterSnapshot(cycle uint32, state classify.State, c Counters) Record {
	return Record{
		Kind:         KindCounters,
		Cycle:        cycle,
		State:        state,
		Timeouts:     sat16(c.Timeouts),
		Insufficient: sat16(c.Insufficient),
		SinkDrops:    sat16(c.SinkDrops),
		Rearms:       sat16(c.Rearms),
	}
}

func toMilliV(v float64) uint16 {
	mv := v * 1000
	if mv < 0 {
		return 0
	}
	if mv > 65535 {
		return 65535
	}
	return uint16(mv)
}

func toMilliVSigned(v float64) int16 {
	mv := v * 1000
	if mv < -32768 {
		return -32768
	}
	if mv > 32767 {
		return 32767
	}
	return int16(mv)
}

func sat16(v uint32) uint16 {
	if v > 65535 {
		return 65535
	}
	return uint16(v)
}
