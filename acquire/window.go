package acquire

// Sample is a single reading of the blade return signal.
// Read-only once captured.
type Sample struct {
	// Seq is a monotonic sequence index assigned by the sampler.
	Seq uint32
	// Raw is the ADC conversion result in counts.
	Raw uint16
}

// Window holds the most recent samples in capture order.
// Ring buffer semantics: once full, pushing evicts the oldest sample, so the
// window always covers a contiguous, most-recent span of time.
type Window struct {
	buf   []Sample
	start int
	size  int
}

// NewWindow creates an empty window with the given fixed capacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window{
		buf: make([]Sample, capacity),
	}
}

// Push appends a sample, evicting the oldest entry when full.
func (w *Window) Push(s Sample) {
	if w.size < len(w.buf) {
		w.buf[(w.start+w.size)%len(w.buf)] = s
		w.size++
		return
	}
	w.buf[w.start] = s
	w.start = (w.start + 1) % len(w.buf)
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return w.size
}

// Cap returns the fixed capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// At returns the i-th sample, with 0 being the oldest.
func (w *Window) At(i int) Sample {
	return w.buf[(w.start+i)%len(w.buf)]
}

// Samples returns a copy of the window contents, oldest first.
func (w *Window) Samples() []Sample {
	out := make([]Sample, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.At(i)
	}
	return out
}

// Reset empties the window without releasing its storage.
func (w *Window) Reset() {
	w.start = 0
	w.size = 0
}
