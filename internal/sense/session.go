package sense

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/presence.report/internal/csi"
	"github.com/banshee-data/presence.report/internal/monitoring"
)

// SessionConfig carries all tuning for one detection session. Configuration
// is explicit per session, never ambient, so independent sessions (one per
// room or radio) can run with distinct settings without interference.
type SessionConfig struct {
	WindowSize            int
	ThresholdMultiplier   float64
	CalibrationMinSamples int
	CalibrationDuration   time.Duration
	DebounceTicks         int
	StrictFullWindow      bool
	SpectralFeatures      bool
	Parse                 csi.ParseOptions

	// Classifier, when non-nil, adds activity labels to results. Nil means
	// the binary detector decision is the only output; that is a
	// configuration choice, not an error.
	Classifier Classifier

	// Clock defaults to time.Now; tests substitute a deterministic clock.
	Clock func() time.Time
}

// Stats are cumulative ingest counters for one session. A rising drop rate
// signals a degraded serial link and is surfaced here rather than as errors,
// since transient corruption is expected.
type Stats struct {
	LinesReceived uint64 // lines seen, including firmware chatter
	FramesParsed  uint64 // CSI_DATA frames parsed with Valid=true
	FramesDropped uint64 // CSI frames that were invalid or unparseable
}

// DropRate returns dropped frames as a fraction of all CSI frames seen.
func (s Stats) DropRate() float64 {
	total := s.FramesParsed + s.FramesDropped
	if total == 0 {
		return 0
	}
	return float64(s.FramesDropped) / float64(total)
}

// Result is the per-tick output of a session: always a Decision, plus a
// feature vector once the window is large enough, plus an activity label
// when a classifier is configured.
type Result struct {
	Decision Decision
	Features *FeatureVector
	Activity ActivityLabel // empty when no classifier is configured
}

// Session is the calibrate-then-detect pipeline over a line source. The two
// phases are explicit and sequential: Calibrate consumes its own bounded
// collection and must complete before Run starts ticking the detector, so a
// half-calibrated baseline can never leak into detection.
type Session struct {
	id       string
	cfg      SessionConfig
	window   *Window
	detector *Detector
	stats    Stats
}

// NewSession creates a session with defaults applied for zero-value config
// fields.
func NewSession(cfg SessionConfig) *Session {
	if cfg.WindowSize < 2 {
		cfg.WindowSize = 100
	}
	if cfg.ThresholdMultiplier <= 0 {
		cfg.ThresholdMultiplier = 3.0
	}
	if cfg.CalibrationMinSamples < 2 {
		cfg.CalibrationMinSamples = 30
	}
	if cfg.CalibrationDuration <= 0 {
		cfg.CalibrationDuration = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Session{
		id:  uuid.NewString(),
		cfg: cfg,
		window: NewWindow(cfg.WindowSize, cfg.Parse.SubcarrierCount),
		detector: NewDetector(DetectorConfig{
			DebounceTicks:    cfg.DebounceTicks,
			StrictFullWindow: cfg.StrictFullWindow,
		}),
	}
}

// ID returns the session identifier stamped on every decision.
func (s *Session) ID() string { return s.id }

// Stats returns a snapshot of the ingest counters.
func (s *Session) Stats() Stats { return s.stats }

// Window exposes the live window for diagnostics.
func (s *Session) Window() *Window { return s.window }

// Baseline returns the active baseline, or nil before calibration.
func (s *Session) Baseline() *Baseline { return s.detector.Baseline() }

// isCSILine filters the firmware's boot messages and command echoes from the
// frame stream.
func isCSILine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "CSI_DATA")
}

// parseLine parses one CSI line with the session's options, updating the
// ingest counters. ok is false for non-CSI chatter and structurally
// unparseable frames.
func (s *Session) parseLine(line string) (csi.Sample, bool) {
	s.stats.LinesReceived++
	if !isCSILine(line) {
		return csi.Sample{}, false
	}

	sample, err := csi.ParseLine(line, s.cfg.Parse)
	if err != nil {
		// Structural corruption is fatal to this record only.
		s.stats.FramesDropped++
		monitoring.Logf("dropping unparseable frame: %v", err)
		return csi.Sample{}, false
	}
	sample.Timestamp = s.cfg.Clock()
	if sample.Valid {
		s.stats.FramesParsed++
	} else {
		s.stats.FramesDropped++
	}
	return sample, true
}

// Calibrate collects samples from lines for the configured duration (the
// environment must be empty for that span), computes the baseline, and arms
// the detector. It returns early with ctx.Err() on cancellation, checked
// between samples. A closed line channel ends collection.
func (s *Session) Calibrate(ctx context.Context, lines <-chan string) (*Baseline, error) {
	deadline := time.NewTimer(s.cfg.CalibrationDuration)
	defer deadline.Stop()

	var collected []csi.Sample
	monitoring.Logf("calibration started: session=%s duration=%s", s.id, s.cfg.CalibrationDuration)

collect:
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			break collect
		case line, ok := <-lines:
			if !ok {
				break collect
			}
			if sample, ok := s.parseLine(line); ok && sample.Valid {
				collected = append(collected, sample)
			}
		}
	}

	b, err := Calibrate(collected, s.cfg.CalibrationMinSamples, s.cfg.ThresholdMultiplier)
	if err != nil {
		return nil, err
	}
	s.detector.Recalibrate(b)
	return b, nil
}

// Recalibrate atomically installs a replacement baseline, e.g. one computed
// from a fresh empty-environment collection.
func (s *Session) Recalibrate(b *Baseline) {
	s.detector.Recalibrate(b)
}

// Ingest processes one line through parse, window, detector, features, and
// classifier. The result is nil for non-frame lines and for strict-mode
// ticks over a partial window. ErrNotCalibrated propagates: calling Ingest
// before Calibrate is a sequencing bug.
func (s *Session) Ingest(line string) (*Result, error) {
	sample, ok := s.parseLine(line)
	if !ok {
		return nil, nil
	}
	s.window.Push(sample)

	dec, err := s.detector.Tick(s.window, sample.Timestamp)
	if err != nil {
		var iw *InsufficientWindowError
		if errors.As(err, &iw) {
			return nil, nil // strict mode: wait for a full window
		}
		return nil, err
	}
	dec.SessionID = s.id
	res := &Result{Decision: dec}

	if s.window.Len() >= minFeatureWindow {
		fv, ferr := ExtractFeatures(s.window.Snapshot(), FeatureOptions{Spectral: s.cfg.SpectralFeatures})
		if ferr == nil {
			res.Features = &fv
			if s.cfg.Classifier != nil {
				label, cerr := s.cfg.Classifier.Classify(fv)
				if cerr != nil {
					monitoring.Logf("classifier error: %v", cerr)
				} else {
					res.Activity = label
				}
			}
		}
	}

	return res, nil
}

// Run consumes lines until ctx is cancelled or the channel closes, invoking
// emit for every produced result.
func (s *Session) Run(ctx context.Context, lines <-chan string, emit func(Result)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			res, err := s.Ingest(line)
			if err != nil {
				return err
			}
			if res != nil && emit != nil {
				emit(*res)
			}
		}
	}
}
