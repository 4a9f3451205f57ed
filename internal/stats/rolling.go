package stats

// WindowSize is the fixed depth of the rolling sample windows.
const WindowSize = 8

// Window is a fixed 8-sample circular buffer with a maintained sum.
// Invariant: sum always equals the exact sum of the current contents.
type Window struct {
	samples [WindowSize]uint16
	head    int
	count   int
	sum     uint32
}

// Push adds a sample, evicting the oldest once the window is full.
// Callers exclude idle (zero) readings; every pushed sample is real.
func (w *Window) Push(v uint16) {
	w.sum -= uint32(w.samples[w.head])
	w.samples[w.head] = v
	w.sum += uint32(v)
	w.head = (w.head + 1) % WindowSize
	if w.count < WindowSize {
		w.count++
	}
}

// Sum returns the exact sum of the window contents.
func (w *Window) Sum() uint32 {
	return w.sum
}

// Avg returns the rolling average over the samples seen so far.
func (w *Window) Avg() uint16 {
	if w.count == 0 {
		return 0
	}
	return uint16(w.sum / uint32(w.count))
}

// Filled reports whether the window has received a full 8 real samples.
func (w *Window) Filled() bool {
	return w.count == WindowSize
}

// Last returns the most recently pushed sample.
func (w *Window) Last() uint16 {
	if w.count == 0 {
		return 0
	}
	return w.samples[(w.head+WindowSize-1)%WindowSize]
}
