package sense

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/presence.report/internal/csi"
)

func TestCalibrate(t *testing.T) {
	t.Parallel()

	t.Run("threshold is variance times multiplier", func(t *testing.T) {
		t.Parallel()
		// Alternating 9/11 gives a population variance of exactly 1.
		b, err := Calibrate(alternating(40, 4, 9, 11), 30, 3.0)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, b.Variance, 1e-9)
		assert.InDelta(t, 3.0, b.Threshold, 1e-9)
		assert.Equal(t, 40, b.SampleCount)
	})

	t.Run("idempotent on identical input", func(t *testing.T) {
		t.Parallel()
		samples := alternating(50, 8, 9, 11)
		b1, err := Calibrate(samples, 30, 2.5)
		require.NoError(t, err)
		b2, err := Calibrate(samples, 30, 2.5)
		require.NoError(t, err)
		assert.Equal(t, b1.Threshold, b2.Threshold, "bit-for-bit identical threshold")
		assert.Equal(t, b1.Variance, b2.Variance)
	})

	t.Run("zero variance clamps to epsilon", func(t *testing.T) {
		t.Parallel()
		// Perfectly static signal, e.g. mocked input.
		b, err := Calibrate(flatSamples(40, 4, 10), 30, 3.0)
		require.NoError(t, err)
		assert.Greater(t, b.Threshold, 0.0, "threshold must never be zero")
		assert.InDelta(t, varianceEpsilon*3.0, b.Threshold, 1e-15)
	})

	t.Run("too few valid samples", func(t *testing.T) {
		t.Parallel()
		samples := flatSamples(10, 4, 10)
		_, err := Calibrate(samples, 30, 3.0)
		var ide *InsufficientDataError
		require.ErrorAs(t, err, &ide)
		assert.Equal(t, 10, ide.Got)
		assert.Equal(t, 30, ide.Want)
	})

	t.Run("invalid samples do not count", func(t *testing.T) {
		t.Parallel()
		samples := flatSamples(29, 4, 10)
		for i := 0; i < 20; i++ {
			samples = append(samples, csi.Sample{Valid: false})
		}
		_, err := Calibrate(samples, 30, 3.0)
		var ide *InsufficientDataError
		require.ErrorAs(t, err, &ide)
		assert.Equal(t, 29, ide.Got)
	})

	t.Run("per-subcarrier mean amplitude", func(t *testing.T) {
		t.Parallel()
		samples := make([]csi.Sample, 30)
		for i := range samples {
			samples[i] = validSample(2, 4, 6)
		}
		b, err := Calibrate(samples, 30, 3.0)
		require.NoError(t, err)
		require.Len(t, b.MeanAmplitude, 3)
		assert.InDelta(t, 2.0, b.MeanAmplitude[0], 1e-9)
		assert.InDelta(t, 4.0, b.MeanAmplitude[1], 1e-9)
		assert.InDelta(t, 6.0, b.MeanAmplitude[2], 1e-9)
	})
}
