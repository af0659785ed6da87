package sense

import (
	"fmt"
	"strings"
	"time"

	"github.com/banshee-data/presence.report/internal/csi"
)

// validSample builds a valid sample with the given subcarrier amplitudes.
func validSample(amps ...float64) csi.Sample {
	return csi.Sample{
		Timestamp:  time.Unix(0, 0),
		RSSI:       -40,
		Valid:      true,
		Amplitudes: append([]float64(nil), amps...),
		Phases:     make([]float64, len(amps)),
	}
}

// flatSamples builds n valid samples with k subcarriers all at level.
func flatSamples(n, k int, level float64) []csi.Sample {
	out := make([]csi.Sample, n)
	for i := range out {
		amps := make([]float64, k)
		for j := range amps {
			amps[j] = level
		}
		out[i] = validSample(amps...)
	}
	return out
}

// alternating builds n valid samples with k subcarriers whose level
// alternates between lo and hi, giving a deterministic reduction variance of
// ((hi-lo)/2)^2 for even n.
func alternating(n, k int, lo, hi float64) []csi.Sample {
	out := make([]csi.Sample, n)
	for i := range out {
		level := lo
		if i%2 == 1 {
			level = hi
		}
		amps := make([]float64, k)
		for j := range amps {
			amps[j] = level
		}
		out[i] = validSample(amps...)
	}
	return out
}

// csiLine builds a wire-format CSI_DATA record whose k subcarriers all have
// integer magnitude level (real component = level, imaginary = 0), preceded
// by the two guard pairs the parser drops.
func csiLine(level, k int) string {
	fields := make([]string, 0, 24+2*(k+2))
	fields = append(fields, "CSI_DATA", "1", "AA:BB:CC:DD:EE:FF", "-40")
	for i := 0; i < 10; i++ { // rate through sgi
		fields = append(fields, "0")
	}
	fields = append(fields, "-92", "0", "6", "0", "1000", "0", "128", "0")
	fields = append(fields, fmt.Sprintf("%d", 2*(k+2)), "0")
	fields = append(fields, "0", "0", "0", "0") // guard pairs
	for i := 0; i < k; i++ {
		fields = append(fields, "0", fmt.Sprintf("%d", level)) // imag, real
	}
	return strings.Join(fields, ",")
}
