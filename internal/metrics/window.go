package metrics

import "sort"

// DefaultCapacity is the default number of samples retained in a window.
const DefaultCapacity = 50

// Window is a bounded, timestamp-ordered history of samples backed by a
// ring buffer. When full, pushing evicts the oldest sample.
//
// Window is not safe for concurrent use; Feed serializes access to it.
type Window struct {
	data  []Sample
	head  int // next write position
	count int
	size  int
}

// NewWindow creates an empty window holding at most capacity samples.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		data: make([]Sample, capacity),
		size: capacity,
	}
}

// Capacity returns the maximum number of samples the window retains.
func (w *Window) Capacity() int {
	return w.size
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return w.count
}

// Push adds a sample. A sample that is not older than the current tail is
// appended in O(1). An older sample is placed after every sample with an
// equal or smaller timestamp, keeping arrival order for ties.
func (w *Window) Push(s Sample) {
	if w.count == 0 || s.Timestamp >= w.at(w.count-1).Timestamp {
		w.append(s)
		return
	}

	all := w.all()
	pos := sort.Search(len(all), func(i int) bool {
		return all[i].Timestamp > s.Timestamp
	})
	all = append(all, Sample{})
	copy(all[pos+1:], all[pos:])
	all[pos] = s
	w.load(all)
}

// Replace discards the current contents and loads samples wholesale.
// Input is stably sorted by timestamp and only the newest Capacity samples
// are kept.
func (w *Window) Replace(samples []Sample) {
	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	w.load(sorted)
}

// Samples returns a copy of the window contents, oldest first.
func (w *Window) Samples() []Sample {
	return w.all()
}

// Latest returns the most recent sample, or false if the window is empty.
func (w *Window) Latest() (Sample, bool) {
	if w.count == 0 {
		return Sample{}, false
	}
	return w.at(w.count - 1), true
}

// Series projects the window into parallel timestamp/load/energy slices
// in a single pass. The slices are freshly allocated on every call.
func (w *Window) Series() Series {
	s := Series{
		Timestamps: make([]int64, w.count),
		Loads:      make([]int, w.count),
		Energies:   make([]int, w.count),
	}
	for i := 0; i < w.count; i++ {
		sample := w.at(i)
		s.Timestamps[i] = sample.Timestamp
		s.Loads[i] = sample.CognitiveLoad
		s.Energies[i] = sample.EnergyLevel
	}
	return s
}

// append writes s at head, overwriting the oldest sample when full.
func (w *Window) append(s Sample) {
	w.data[w.head] = s
	w.head = (w.head + 1) % w.size
	if w.count < w.size {
		w.count++
	}
}

// at returns the i-th sample in chronological order (0 is oldest).
func (w *Window) at(i int) Sample {
	start := (w.head - w.count + w.size) % w.size
	return w.data[(start+i)%w.size]
}

// all returns every stored sample in chronological order.
func (w *Window) all() []Sample {
	out := make([]Sample, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.at(i)
	}
	return out
}

// load resets the ring and appends ordered, keeping the newest size samples.
func (w *Window) load(ordered []Sample) {
	if len(ordered) > w.size {
		ordered = ordered[len(ordered)-w.size:]
	}
	w.head = 0
	w.count = 0
	for _, s := range ordered {
		w.append(s)
	}
}
