// Package sense implements the online presence-detection engine: a rolling
// window over parsed CSI samples, an empty-environment calibration baseline,
// a variance-threshold detector, and feature extraction for an optional
// pluggable activity classifier.
package sense

import (
	"github.com/banshee-data/presence.report/internal/csi"
)

// Window is a fixed-capacity FIFO ring of recent valid samples. The window
// exclusively owns its buffered samples; Snapshot and Reduction return copies
// so readers never observe mutation mid-computation.
//
// The first valid sample pins the subcarrier count K for the session. Later
// samples with a different count are dropped (sensor/firmware mismatch),
// never reshaped.
type Window struct {
	samples     []csi.Sample
	capacity    int
	head        int // next write position
	size        int
	subcarriers int // pinned K; 0 until the first valid sample
	dropped     uint64
}

// NewWindow creates a rolling window with the given capacity. The expected
// subcarrier count may be pre-pinned; zero defers pinning to the first valid
// sample.
func NewWindow(capacity, subcarriers int) *Window {
	if capacity < 2 {
		capacity = 100
	}
	return &Window{
		samples:     make([]csi.Sample, capacity),
		capacity:    capacity,
		subcarriers: subcarriers,
	}
}

// Push inserts a sample, evicting the oldest once full. Invalid samples and
// samples whose subcarrier count disagrees with the pinned K are counted as
// drops and do not enter the window. Reports whether the sample was accepted.
func (w *Window) Push(s csi.Sample) bool {
	if !s.Valid {
		w.dropped++
		return false
	}
	if w.subcarriers == 0 {
		w.subcarriers = s.Subcarriers()
	}
	if s.Subcarriers() != w.subcarriers {
		w.dropped++
		return false
	}

	w.samples[w.head] = s
	w.head = (w.head + 1) % w.capacity
	if w.size < w.capacity {
		w.size++
	}
	return true
}

// Snapshot returns a deep copy of the current contents, oldest to newest.
func (w *Window) Snapshot() []csi.Sample {
	if w.size == 0 {
		return nil
	}
	out := make([]csi.Sample, w.size)
	for i := 0; i < w.size; i++ {
		idx := (w.head - w.size + i + w.capacity) % w.capacity
		s := w.samples[idx]
		s.Amplitudes = append([]float64(nil), s.Amplitudes...)
		s.Phases = append([]float64(nil), s.Phases...)
		out[i] = s
	}
	return out
}

// Reduction returns the mean-amplitude-across-subcarriers series, oldest to
// newest. This scalar series is the shared reduction consumed by both
// calibration and detection.
func (w *Window) Reduction() []float64 {
	if w.size == 0 {
		return nil
	}
	out := make([]float64, w.size)
	for i := 0; i < w.size; i++ {
		idx := (w.head - w.size + i + w.capacity) % w.capacity
		out[i] = w.samples[idx].MeanAmplitude()
	}
	return out
}

// Latest returns the most recently accepted sample, or nil when empty.
func (w *Window) Latest() *csi.Sample {
	if w.size == 0 {
		return nil
	}
	idx := (w.head - 1 + w.capacity) % w.capacity
	return &w.samples[idx]
}

// Full reports whether the window has reached capacity.
func (w *Window) Full() bool { return w.size == w.capacity }

// Len returns the current number of buffered samples.
func (w *Window) Len() int { return w.size }

// Cap returns the window capacity.
func (w *Window) Cap() int { return w.capacity }

// Subcarriers returns the pinned subcarrier count K, or 0 before the first
// valid sample.
func (w *Window) Subcarriers() int { return w.subcarriers }

// Dropped returns the count of samples rejected as invalid or mismatched.
// Exposed as a diagnostic; a rising drop rate indicates a degraded link, not
// an error.
func (w *Window) Dropped() uint64 { return w.dropped }

// Clear empties the window. The pinned subcarrier count and drop counter are
// retained.
func (w *Window) Clear() {
	for i := range w.samples {
		w.samples[i] = csi.Sample{}
	}
	w.head = 0
	w.size = 0
}
