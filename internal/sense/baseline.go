package sense

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/presence.report/internal/csi"
	"github.com/banshee-data/presence.report/internal/monitoring"
)

// varianceEpsilon is the floor applied to a baseline variance that rounds to
// zero (perfectly static or simulated input). Without it the detection
// threshold would be zero and any noise would read as presence.
const varianceEpsilon = 1e-9

// Baseline is the calibrated empty-environment reference. It is immutable
// after creation; recalibration builds a fresh Baseline and swaps it in
// atomically so stale and fresh statistics are never mixed mid-decision.
type Baseline struct {
	// MeanAmplitude is the per-subcarrier mean amplitude over the
	// calibration run.
	MeanAmplitude []float64
	// Variance is the population variance of the mean-across-subcarriers
	// amplitude series.
	Variance float64
	// Threshold is Variance scaled by Multiplier; window variance above it
	// reads as presence.
	Threshold float64
	// Multiplier is the configured threshold multiplier.
	Multiplier float64
	// SampleCount is the number of valid samples the baseline was computed
	// from.
	SampleCount int
	CalibratedAt time.Time
}

// Calibrate computes a Baseline from samples collected while the environment
// is declared empty. At least minSamples valid samples are required;
// otherwise an *InsufficientDataError is returned. The computation is
// deterministic: identical input yields an identical threshold.
func Calibrate(samples []csi.Sample, minSamples int, multiplier float64) (*Baseline, error) {
	if minSamples < 2 {
		minSamples = 2
	}
	if multiplier <= 0 {
		multiplier = 3.0
	}

	valid := make([]csi.Sample, 0, len(samples))
	for _, s := range samples {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) < minSamples {
		return nil, &InsufficientDataError{Got: len(valid), Want: minSamples}
	}

	// Scalar reduction: one mean amplitude per sample. The detector uses the
	// same reduction, keeping the per-tick cost O(N) in window size.
	reduction := make([]float64, len(valid))
	for i, s := range valid {
		reduction[i] = s.MeanAmplitude()
	}

	variance := stat.PopVariance(reduction, nil)
	if variance < varianceEpsilon {
		variance = varianceEpsilon
	}

	// Per-subcarrier mean amplitude across the run, sized to the smallest
	// observed count so a stray short frame cannot index out of range.
	k := valid[0].Subcarriers()
	for _, s := range valid {
		if s.Subcarriers() < k {
			k = s.Subcarriers()
		}
	}
	meanAmp := make([]float64, k)
	for _, s := range valid {
		for j := 0; j < k; j++ {
			meanAmp[j] += s.Amplitudes[j]
		}
	}
	for j := range meanAmp {
		meanAmp[j] /= float64(len(valid))
	}

	b := &Baseline{
		MeanAmplitude: meanAmp,
		Variance:      variance,
		Threshold:     variance * multiplier,
		Multiplier:    multiplier,
		SampleCount:   len(valid),
		CalibratedAt:  time.Now(),
	}
	monitoring.Logf("calibrated: samples=%d variance=%.6f threshold=%.6f", b.SampleCount, b.Variance, b.Threshold)
	return b, nil
}
