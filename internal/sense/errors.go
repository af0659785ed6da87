package sense

import (
	"errors"
	"fmt"
)

// ErrNotCalibrated is returned when detection is attempted before a baseline
// exists. This is a sequencing error in the caller's control flow, not a
// routine runtime condition.
var ErrNotCalibrated = errors.New("detector not calibrated")

// InsufficientDataError reports a calibration attempt with too few valid
// samples to produce a non-degenerate variance. The attempt is retryable by
// collecting more data.
type InsufficientDataError struct {
	Got  int
	Want int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("calibration needs at least %d valid samples, got %d", e.Want, e.Got)
}

// InsufficientWindowError reports feature extraction (or strict-mode
// detection) over a window too small for stable second-moment statistics.
// Recoverable by waiting for more samples.
type InsufficientWindowError struct {
	Got  int
	Want int
}

func (e *InsufficientWindowError) Error() string {
	return fmt.Sprintf("window holds %d samples, need %d", e.Got, e.Want)
}

// ModelMismatchError reports a classifier model whose input dimensionality
// does not match the feature vector length. Detected once at load time; the
// binary detector path remains usable.
type ModelMismatchError struct {
	Path      string
	ModelDims int
	WantDims  int
}

func (e *ModelMismatchError) Error() string {
	return fmt.Sprintf("model %q expects %d features, extractor produces %d", e.Path, e.ModelDims, e.WantDims)
}
