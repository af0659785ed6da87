package sense

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/presence.report/internal/csi"
)

// FeatureCount is the fixed feature vector length. Classifier models are
// validated against it at load time.
const FeatureCount = 14

// Window length bounds for feature extraction.
const (
	// minFeatureWindow is the smallest window yielding stable second-moment
	// statistics.
	minFeatureWindow = 10
	// minSpectralWindow is the smallest window the FFT feature group is
	// computed over; below it the spectral slots are zero so the vector
	// length never changes.
	minSpectralWindow = 32
)

// FFT band boundaries (bin indices) for the spectral energy features.
const (
	lowBandEnd = 10
	midBandEnd = 20
)

// FeatureVector is a fixed-order descriptor of one window snapshot. It is a
// pure value: recomputing over the same snapshot yields identical output.
type FeatureVector [FeatureCount]float64

// FeatureNames returns the fixed feature order, index-aligned with
// FeatureVector.
func FeatureNames() []string {
	return []string{
		"mean_amplitude",
		"std_amplitude",
		"var_amplitude",
		"range_amplitude",
		"mean_subcarrier_var",
		"std_subcarrier_var",
		"max_subcarrier_var",
		"mean_abs_gradient",
		"std_gradient",
		"max_abs_gradient",
		"low_freq_energy",
		"mid_freq_energy",
		"peak_freq_magnitude",
		"cross_subcarrier_corr",
	}
}

// FeatureOptions configures feature extraction.
type FeatureOptions struct {
	// Spectral enables the frequency-domain feature group. When disabled the
	// three spectral slots are zero, keeping vectors comparable across
	// configurations that toggle it per session.
	Spectral bool
}

// ExtractFeatures computes the feature vector over a window snapshot. The
// snapshot must hold at least minFeatureWindow samples, all with the same
// subcarrier count (guaranteed by Window).
func ExtractFeatures(samples []csi.Sample, opts FeatureOptions) (FeatureVector, error) {
	var fv FeatureVector
	n := len(samples)
	if n < minFeatureWindow {
		return fv, &InsufficientWindowError{Got: n, Want: minFeatureWindow}
	}

	reduction := make([]float64, n)
	for i := range samples {
		reduction[i] = samples[i].MeanAmplitude()
	}

	// Statistical group over the reduction series.
	fv[0] = stat.Mean(reduction, nil)
	fv[1] = stat.PopStdDev(reduction, nil)
	fv[2] = stat.PopVariance(reduction, nil)
	minR, maxR := reduction[0], reduction[0]
	for _, v := range reduction[1:] {
		if v < minR {
			minR = v
		}
		if v > maxR {
			maxR = v
		}
	}
	fv[3] = maxR - minR

	// Per-subcarrier variance summary: whether the disturbance is broadband
	// or confined to a few subcarriers.
	k := samples[0].Subcarriers()
	col := make([]float64, n)
	svars := make([]float64, k)
	for j := 0; j < k; j++ {
		for i := range samples {
			col[i] = samples[i].Amplitudes[j]
		}
		svars[j] = stat.PopVariance(col, nil)
	}
	if k > 0 {
		fv[4] = stat.Mean(svars, nil)
		fv[5] = stat.PopStdDev(svars, nil)
		maxV := svars[0]
		for _, v := range svars[1:] {
			if v > maxV {
				maxV = v
			}
		}
		fv[6] = maxV
	}

	// Temporal group: first difference of the reduction series.
	grad := make([]float64, n-1)
	var sumAbs, maxAbs float64
	for i := 1; i < n; i++ {
		g := reduction[i] - reduction[i-1]
		grad[i-1] = g
		a := math.Abs(g)
		sumAbs += a
		if a > maxAbs {
			maxAbs = a
		}
	}
	fv[7] = sumAbs / float64(len(grad))
	fv[8] = stat.PopStdDev(grad, nil)
	fv[9] = maxAbs

	// Spectral group: band energies of the de-meaned reduction series.
	if opts.Spectral && n >= minSpectralWindow {
		fv[10], fv[11], fv[12] = spectralEnergies(reduction, fv[0])
	}

	// Cross-subcarrier correlation between the first and last subcarrier.
	if k >= 2 {
		first := make([]float64, n)
		last := make([]float64, n)
		for i := range samples {
			first[i] = samples[i].Amplitudes[0]
			last[i] = samples[i].Amplitudes[k-1]
		}
		if c := stat.Correlation(first, last, nil); !math.IsNaN(c) {
			fv[13] = c
		}
	}

	return fv, nil
}

// spectralEnergies returns the low-band mean, mid-band mean, and peak
// magnitude of the FFT of the de-meaned series, excluding the DC bin.
func spectralEnergies(series []float64, mean float64) (low, mid, peak float64) {
	demeaned := make([]float64, len(series))
	for i, v := range series {
		demeaned[i] = v - mean
	}

	spectrum := fft.FFTReal(demeaned)
	half := len(spectrum) / 2
	mags := make([]float64, half)
	for i := 0; i < half; i++ {
		mags[i] = cmplx.Abs(spectrum[i])
	}

	if half > lowBandEnd {
		low = stat.Mean(mags[1:lowBandEnd], nil)
	}
	if half > midBandEnd {
		mid = stat.Mean(mags[lowBandEnd:midBandEnd], nil)
	}
	for _, m := range mags[1:] {
		if m > peak {
			peak = m
		}
	}
	return low, mid, peak
}
