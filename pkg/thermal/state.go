package thermal

// History is a bounded FIFO of temperature samples. Once full, each Push
// drops the oldest sample. The zero value is unusable; use NewHistory.
type History struct {
	buf   []float64
	start int
	n     int
}

// NewHistory creates a history holding at most size samples.
func NewHistory(size int) *History {
	if size < 1 {
		size = 1
	}
	return &History{buf: make([]float64, size)}
}

// Push appends v, evicting the oldest sample when full.
func (h *History) Push(v float64) {
	if h.n < len(h.buf) {
		h.buf[(h.start+h.n)%len(h.buf)] = v
		h.n++
		return
	}
	h.buf[h.start] = v
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of stored samples.
func (h *History) Len() int { return h.n }

// Cap returns the maximum number of samples.
func (h *History) Cap() int { return len(h.buf) }

// At returns the i-th sample, oldest first.
func (h *History) At(i int) float64 {
	return h.buf[(h.start+i)%len(h.buf)]
}

// Values returns a copy of the samples, oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, h.n)
	for i := range out {
		out[i] = h.At(i)
	}
	return out
}

// Clear drops every sample.
func (h *History) Clear() {
	h.start, h.n = 0, 0
}

// State is the thermal state of one ablation session. It is owned by a
// single session and is not safe for concurrent use.
type State struct {
	// Current is the centroid temperature in °C
	Current float64

	// Margin is the tumor-edge temperature in °C
	Margin float64

	// Destroyed is set once the centroid reached the target
	Destroyed bool

	// Ticks counts applied updates since the last reset
	Ticks int

	// History holds the most recent centroid temperatures
	History *History

	baseline float64
}

// NewState creates a state at baseline temperature.
func NewState(baseline float64, historySize int) *State {
	s := &State{History: NewHistory(historySize), baseline: baseline}
	s.Reset()
	return s
}

// Apply records a tick.
func (s *State) Apply(t Tick) {
	s.Current = t.Next
	s.Margin = t.Margin
	s.Destroyed = s.Destroyed || t.Destroyed
	s.Ticks++
	s.History.Push(t.Next)
}

// Reset returns to baseline and clears the history.
func (s *State) Reset() {
	s.Current = s.baseline
	s.Margin = s.baseline
	s.Destroyed = false
	s.Ticks = 0
	s.History.Clear()
}

// Baseline returns the temperature the state resets to.
func (s *State) Baseline() float64 { return s.baseline }
