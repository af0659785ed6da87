package sense

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/presence.report/internal/csi"
)

func TestWindowFIFOEviction(t *testing.T) {
	t.Parallel()

	w := NewWindow(3, 0)
	for _, level := range []float64{1, 2, 3, 4, 5} {
		w.Push(validSample(level, level))
	}

	require.True(t, w.Full())
	assert.Equal(t, 3, w.Len())

	// Oldest evicted first: 1 and 2 are gone.
	want := []float64{3, 4, 5}
	if diff := cmp.Diff(want, w.Reduction()); diff != "" {
		t.Errorf("reduction mismatch (-want +got):\n%s", diff)
	}
}

func TestWindowRejectsInvalid(t *testing.T) {
	t.Parallel()

	w := NewWindow(10, 0)
	ok := w.Push(csi.Sample{Valid: false, Reason: "truncated payload"})
	assert.False(t, ok)
	assert.Equal(t, 0, w.Len(), "invalid samples are a statistics no-op")
	assert.Equal(t, uint64(1), w.Dropped())
}

func TestWindowPinsSubcarrierCount(t *testing.T) {
	t.Parallel()

	w := NewWindow(10, 0)
	require.True(t, w.Push(validSample(1, 2, 3)))
	assert.Equal(t, 3, w.Subcarriers(), "K pinned from first valid sample")

	// A later sample with different K is dropped, never reshaped.
	ok := w.Push(validSample(1, 2))
	assert.False(t, ok)
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, uint64(1), w.Dropped())

	// Matching K is still accepted.
	require.True(t, w.Push(validSample(4, 5, 6)))
	assert.Equal(t, 2, w.Len())
}

func TestWindowPrePinnedSubcarrierCount(t *testing.T) {
	t.Parallel()

	w := NewWindow(10, 52)
	ok := w.Push(validSample(1, 2, 3))
	assert.False(t, ok, "sample with K=3 rejected when session expects 52")
	assert.Equal(t, uint64(1), w.Dropped())
}

func TestWindowSnapshotIsIsolated(t *testing.T) {
	t.Parallel()

	w := NewWindow(5, 0)
	w.Push(validSample(10, 20))
	w.Push(validSample(30, 40))

	snap := w.Snapshot()
	require.Len(t, snap, 2)

	// Mutating the snapshot must not reach the window's own samples.
	snap[0].Amplitudes[0] = 999
	again := w.Snapshot()
	assert.Equal(t, 10.0, again[0].Amplitudes[0])
}

func TestWindowClear(t *testing.T) {
	t.Parallel()

	w := NewWindow(4, 0)
	for i := 0; i < 4; i++ {
		w.Push(validSample(float64(i), float64(i)))
	}
	w.Push(csi.Sample{Valid: false})
	require.True(t, w.Full())

	w.Clear()
	assert.Equal(t, 0, w.Len())
	assert.False(t, w.Full())
	assert.Nil(t, w.Snapshot())
	// Pinned K and drop diagnostics survive a clear.
	assert.Equal(t, 2, w.Subcarriers())
	assert.Equal(t, uint64(1), w.Dropped())
}

func TestWindowLatest(t *testing.T) {
	t.Parallel()

	w := NewWindow(3, 0)
	assert.Nil(t, w.Latest())

	w.Push(validSample(1))
	w.Push(validSample(2))
	require.NotNil(t, w.Latest())
	assert.Equal(t, 2.0, w.Latest().MeanAmplitude())
}
