package acquire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowFill(t *testing.T) {
	w := NewWindow(4)
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 4, w.Cap())

	for i := 0; i < 3; i++ {
		w.Push(Sample{Seq: uint32(i + 1), Raw: uint16(i * 10)})
	}
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, uint32(1), w.At(0).Seq)
	assert.Equal(t, uint32(3), w.At(2).Seq)
}

func TestWindowEviction(t *testing.T) {
	const capacity = 5
	w := NewWindow(capacity)

	// Insert N+1 samples: the oldest must be gone and the length capped.
	for i := 0; i < capacity+1; i++ {
		w.Push(Sample{Seq: uint32(i + 1)})
	}
	require.Equal(t, capacity, w.Len())
	for i := 0; i < w.Len(); i++ {
		assert.NotEqual(t, uint32(1), w.At(i).Seq, "oldest sample must be evicted")
	}
	// Still a contiguous, most-recent span.
	assert.Equal(t, uint32(2), w.At(0).Seq)
	assert.Equal(t, uint32(capacity+1), w.At(capacity-1).Seq)
}

func TestWindowSamplesCopy(t *testing.T) {
	w := NewWindow(3)
	w.Push(Sample{Seq: 1, Raw: 7})
	w.Push(Sample{Seq: 2, Raw: 8})

	got := w.Samples()
	require.Len(t, got, 2)
	assert.Equal(t, uint16(7), got[0].Raw)
	assert.Equal(t, uint16(8), got[1].Raw)

	// Mutating the copy must not touch the window.
	got[0].Raw = 99
	assert.Equal(t, uint16(7), w.At(0).Raw)
}

func TestWindowReset(t *testing.T) {
	w := NewWindow(3)
	for i := 0; i < 5; i++ {
		w.Push(Sample{Seq: uint32(i)})
	}
	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 3, w.Cap())
}
