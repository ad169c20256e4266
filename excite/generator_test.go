package excite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSlice emulates a PWM slice backed by a fixed tick clock: requested
// periods are quantized to whole ticks, as real clock dividers do.
type fakeSlice struct {
	clockHz uint64
	period  uint64
	top     uint32
	values  map[uint8]uint32
	enabled bool
}

func newFakeSlice(clockHz uint64) *fakeSlice {
	return &fakeSlice{
		clockHz: clockHz,
		values:  make(map[uint8]uint32),
	}
}

func (f *fakeSlice) SetPeriod(period uint64) error {
	ticks := period * f.clockHz / 1e9
	if ticks == 0 {
		ticks = 1
	}
	f.top = uint32(ticks - 1)
	f.period = ticks * 1e9 / f.clockHz
	return nil
}

func (f *fakeSlice) Period() uint64 {
	return f.period
}

func (f *fakeSlice) Top() uint32 {
	return f.top
}

func (f *fakeSlice) Set(channel uint8, value uint32) {
	f.values[channel] = value
}

func (f *fakeSlice) Enable(enable bool) {
	f.enabled = enable
}

func TestGeneratorStart(t *testing.T) {
	// 24 MHz clock represents 100 kHz exactly: 240 ticks per period.
	slice := newFakeSlice(24_000_000)
	gen := New(slice, 0, DefaultConfig())

	require.NoError(t, gen.Start())
	assert.True(t, gen.Running())
	assert.True(t, slice.enabled)
	assert.Equal(t, uint64(10_000), slice.period)
	// 50% duty
	assert.Equal(t, uint32(float64(slice.top)*0.5), slice.values[0])
}

func TestGeneratorStartUnachievableFrequency(t *testing.T) {
	// A 1 MHz clock quantizes a 97 kHz request (10309 ns) to 10000 ns,
	// which is a 3% deviation.
	slice := newFakeSlice(1_000_000)
	gen := New(slice, 0, Config{FrequencyHz: 97_000, DutyCycle: 0.5})

	err := gen.Start()
	require.ErrorIs(t, err, ErrConfig)
	assert.False(t, gen.Running())
	assert.False(t, slice.enabled, "output must stay disabled, not run at an unverified frequency")
}

func TestGeneratorStartInvalidConfig(t *testing.T) {
	slice := newFakeSlice(24_000_000)

	err := New(slice, 0, Config{FrequencyHz: 0, DutyCycle: 0.5}).Start()
	require.ErrorIs(t, err, ErrConfig)

	err = New(slice, 0, Config{FrequencyHz: 100_000, DutyCycle: 1.5}).Start()
	require.ErrorIs(t, err, ErrConfig)
}

func TestGeneratorStop(t *testing.T) {
	slice := newFakeSlice(24_000_000)
	gen := New(slice, 2, DefaultConfig())
	require.NoError(t, gen.Start())

	gen.Stop()
	assert.False(t, gen.Running())
	assert.False(t, slice.enabled)
	// Channel forced to the idle level, never left floating mid-cycle.
	assert.Equal(t, uint32(0), slice.values[2])
}
