package classify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brakeguard/BladeContactSensor/feature"
)

func testConfig() Config {
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

func healthy() feature.Set {
	return feature.Set{PeakToPeak: 5.0, Mean: 2.5, DeltaFromBaseline: 0}
}

func TestStaysNoContactOnZeroDelta(t *testing.T) {
	c := NewClassifier(testConfig())
	for i := 0; i < 50; i++ {
		state, transitioned := c.Update(healthy())
		require.Equal(t, NoContact, state)
		require.False(t, transitioned)
	}
}

func TestProximityRequiresConsecutiveCycles(t *testing.T) {
	c := NewClassifier(testConfig())
	f := healthy()
	f.DeltaFromBaseline = 0.3

	// One hot cycle followed by a quiet one must not trip the transition.
	c.Update(f)
	state, transitioned := c.Update(healthy())
	assert.Equal(t, NoContact, state)
	assert.False(t, transitioned)

	// K consecutive hot cycles do.
	c.Update(f)
	state, transitioned = c.Update(f)
	assert.Equal(t, Proximity, state)
	assert.True(t, transitioned)
}

func TestNegativeDeltaAlsoIndicatesProximity(t *testing.T) {
	c := NewClassifier(testConfig())
	f := healthy()
	f.DeltaFromBaseline = -0.3

	c.Update(f)
	state, _ := c.Update(f)
	assert.Equal(t, Proximity, state)
}

func TestContactOnPeakToPeakCollapse(t *testing.T) {
	c := NewClassifier(testConfig())
	toProximity(t, c)

	collapsed := feature.Set{PeakToPeak: 0.05, Mean: 0, DeltaFromBaseline: -2.5}
	c.Update(collapsed)
	state, transitioned := c.Update(collapsed)
	assert.Equal(t, Contact, state)
	assert.True(t, transitioned)
}

func TestContactOnLargeDelta(t *testing.T) {
	c := NewClassifier(testConfig())
	toProximity(t, c)

	// Swing intact but offset past the contact-level threshold.
	shifted := feature.Set{PeakToPeak: 4.0, Mean: 4.0, DeltaFromBaseline: 1.5}
	c.Update(shifted)
	state, _ := c.Update(shifted)
	assert.Equal(t, Contact, state)
}

func TestProximityRelaxesEagerly(t *testing.T) {
	c := NewClassifier(testConfig())
	toProximity(t, c)

	// One quiet cycle below T_p - H relaxes immediately, no confirmation.
	state, transitioned := c.Update(healthy())
	assert.Equal(t, NoContact, state)
	assert.True(t, transitioned)
}

func TestProximityHysteresisHoldsNearBoundary(t *testing.T) {
	c := NewClassifier(testConfig())
	toProximity(t, c)

	// Delta hovering between T_p - H and T_p keeps the state.
	f := healthy()
	f.DeltaFromBaseline = 0.22
	for i := 0; i < 10; i++ {
		state, transitioned := c.Update(f)
		require.Equal(t, Proximity, state)
		require.False(t, transitioned)
	}
}

func TestContactLatchedUntilReset(t *testing.T) {
	c := NewClassifier(testConfig())
	toContact(t, c)

	// No feature sequence without an external reset may reach NoContact.
	sequences := []feature.Set{
		healthy(),
		{PeakToPeak: 5.0, Mean: 2.5, DeltaFromBaseline: 0},
		{PeakToPeak: 3.0, Mean: 2.4, DeltaFromBaseline: -0.1},
	}
	for i := 0; i < 30; i++ {
		state, _ := c.Update(sequences[i%len(sequences)])
		require.NotEqual(t, NoContact, state)
	}
	assert.True(t, c.Latched())

	c.Reset()
	assert.Equal(t, NoContact, c.State())
	assert.False(t, c.Latched())
}

func TestContactRecoveryStopsAtProximity(t *testing.T) {
	c := NewClassifier(testConfig())
	toContact(t, c)

	state, transitioned := c.Update(healthy())
	assert.Equal(t, Proximity, state)
	assert.True(t, transitioned)

	// Still held above NoContact by the latch.
	state, _ = c.Update(healthy())
	assert.Equal(t, Proximity, state)
}

func TestContactDeltaRelaxUsesHysteresis(t *testing.T) {
	c := NewClassifier(testConfig())
	toContact(t, c)

	// Swing recovered, delta just inside the hysteresis band below the
	// contact threshold: must hold Contact, not chatter the edge.
	f := healthy()
	f.DeltaFromBaseline = 0.97
	for i := 0; i < 10; i++ {
		state, transitioned := c.Update(f)
		require.Equal(t, Contact, state)
		require.False(t, transitioned)
	}

	// Below the band the state relaxes.
	f.DeltaFromBaseline = 0.9
	state, transitioned := c.Update(f)
	assert.Equal(t, Proximity, state)
	assert.True(t, transitioned)
}

func TestMalformedFeaturesClamped(t *testing.T) {
	c := NewClassifier(testConfig())

	// Update never fails and never panics on impossible input.
	for i := 0; i < 5; i++ {
		state, _ := c.Update(feature.Set{
			PeakToPeak:        -1.0,
			Mean:              math.NaN(),
			DeltaFromBaseline: math.NaN(),
		})
		require.Equal(t, NoContact, state)
	}
}

func TestRepeatedTimeoutsEscalateToFault(t *testing.T) {
	c := NewClassifier(testConfig())

	state, transitioned := c.RecordTimeout()
	assert.Equal(t, NoContact, state)
	assert.False(t, transitioned)
	state, transitioned = c.RecordTimeout()
	assert.Equal(t, NoContact, state)
	assert.False(t, transitioned)

	state, transitioned = c.RecordTimeout()
	assert.Equal(t, Fault, state)
	assert.True(t, transitioned)

	// Fault is latched: good features do not clear it.
	state, transitioned = c.Update(healthy())
	assert.Equal(t, Fault, state)
	assert.False(t, transitioned)

	c.Reset()
	assert.Equal(t, NoContact, c.State())
}

func TestSuccessfulUpdateClearsTimeoutRun(t *testing.T) {
	c := NewClassifier(testConfig())

	c.RecordTimeout()
	c.RecordTimeout()
	c.Update(healthy())
	c.RecordTimeout()
	c.RecordTimeout()
	state, _ := c.RecordTimeout()
	assert.Equal(t, Fault, state, "only consecutive timeouts count")
}

func TestHistoryRecordsTransitions(t *testing.T) {
	c := NewClassifier(testConfig())
	toContact(t, c)

	events := c.History()
	require.GreaterOrEqual(t, len(events), 2)
	// Newest first.
	assert.Equal(t, Contact, events[0].State)
	assert.Equal(t, Proximity, events[1].State)
	assert.Greater(t, events[0].Cycle, events[1].Cycle)
}

func toProximity(t *testing.T, c *Classifier) {
	t.Helper()
	f := healthy()
	f.DeltaFromBaseline = 0.5
	for i := 0; i < 2; i++ {
		c.Update(f)
	}
	require.Equal(t, Proximity, c.State())
}

func toContact(t *testing.T, c *Classifier) {
	t.Helper()
	toProximity(t, c)
	collapsed := feature.Set{PeakToPeak: 0.05, Mean: 0, DeltaFromBaseline: -2.5}
	for i := 0; i < 2; i++ {
		c.Update(collapsed)
	}
	require.Equal(t, Contact, c.State())
}
