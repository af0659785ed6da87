package sense

import (
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

// State is the observable presence state of the detector.
type State int

const (
	StateEmpty State = iota
	StatePresent
)

func (s State) String() string {
	if s == StatePresent {
		return "present"
	}
	return "empty"
}

// Decision is one detection output. Decisions are value snapshots and are
// never retroactively revised.
type Decision struct {
	Timestamp  time.Time
	SessionID  string
	State      State
	Present    bool
	Variance   float64
	Confidence float64
	RSSI       int
	WindowFill int
}

// DetectorConfig tunes detector behavior beyond the calibrated threshold.
type DetectorConfig struct {
	// DebounceTicks requires this many consecutive contrary ticks before the
	// reported state flips, suppressing flicker near the threshold. Zero
	// disables debouncing.
	DebounceTicks int
	// StrictFullWindow refuses to decide until the window is full. When
	// false, early decisions are computed over the partial window (noisier,
	// not rejected).
	StrictFullWindow bool
}

// Detector is a two-state machine comparing rolling window variance against
// a calibrated threshold. Ticks before calibration fail with
// ErrNotCalibrated. The comparison is level-triggered: the raw state each
// tick depends only on the current window contents; debounce only delays the
// reported flip.
type Detector struct {
	cfg      DetectorConfig
	baseline atomic.Pointer[Baseline]

	// Debounce bookkeeping, touched only by the single Tick caller.
	started  bool
	reported State
	contrary int
}

// NewDetector creates an uncalibrated detector.
func NewDetector(cfg DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Recalibrate atomically replaces the baseline snapshot. Passing the first
// baseline arms the detector; the whole snapshot swaps at once so a tick
// never observes a half-updated baseline.
func (d *Detector) Recalibrate(b *Baseline) {
	d.baseline.Store(b)
}

// Baseline returns the current baseline snapshot, or nil before calibration.
func (d *Detector) Baseline() *Baseline {
	return d.baseline.Load()
}

// Tick computes one Decision from the current window state. Before
// calibration it returns ErrNotCalibrated without touching the window. In
// strict mode a partial window yields an *InsufficientWindowError.
func (d *Detector) Tick(w *Window, now time.Time) (Decision, error) {
	b := d.baseline.Load()
	if b == nil {
		return Decision{}, ErrNotCalibrated
	}
	if d.cfg.StrictFullWindow && !w.Full() {
		return Decision{}, &InsufficientWindowError{Got: w.Len(), Want: w.Cap()}
	}

	reduction := w.Reduction()
	var variance float64
	if len(reduction) >= 2 {
		variance = stat.PopVariance(reduction, nil)
	}

	observed := StateEmpty
	if variance > b.Threshold {
		observed = StatePresent
	}
	reported := d.debounce(observed)

	dec := Decision{
		Timestamp:  now,
		State:      reported,
		Present:    reported == StatePresent,
		Variance:   variance,
		Confidence: confidence(reported, variance, b.Threshold),
		WindowFill: w.Len(),
	}
	if latest := w.Latest(); latest != nil {
		dec.RSSI = latest.RSSI
	}
	return dec, nil
}

// debounce folds the observed state into the reported state, requiring
// DebounceTicks consecutive contrary observations before flipping.
func (d *Detector) debounce(observed State) State {
	if !d.started {
		d.started = true
		d.reported = observed
		return d.reported
	}
	if d.cfg.DebounceTicks <= 0 {
		d.reported = observed
		return d.reported
	}
	if observed == d.reported {
		d.contrary = 0
		return d.reported
	}
	d.contrary++
	if d.contrary >= d.cfg.DebounceTicks {
		d.reported = observed
		d.contrary = 0
	}
	return d.reported
}

// confidence maps variance to [0, 1], monotonic in variance for each state.
// The curve is heuristic (carried over from the firmware vendor's reference
// detector); any monotonic bounded mapping would satisfy the contract.
func confidence(s State, variance, threshold float64) float64 {
	if threshold <= 0 {
		return 0.5
	}
	if s == StatePresent {
		return clamp01(variance / (threshold * 2))
	}
	return clamp01(1 - variance/threshold)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
