package sense

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

// ActivityLabel is a coarse activity class produced by a classifier.
type ActivityLabel string

const (
	ActivityNoPresence     ActivityLabel = "no_presence"
	ActivityStaticPresence ActivityLabel = "static_presence"
	ActivitySmallMovement  ActivityLabel = "small_movement"
	ActivityLargeMovement  ActivityLabel = "large_movement"
)

// KnownActivity reports whether the label is one of the recognized classes.
func KnownActivity(l ActivityLabel) bool {
	switch l {
	case ActivityNoPresence, ActivityStaticPresence, ActivitySmallMovement, ActivityLargeMovement:
		return true
	}
	return false
}

// Classifier maps feature vectors to activity labels. It wraps an externally
// trained decision function; the engine never trains models or depends on a
// specific model family. When no classifier is configured the session falls
// back to the detector's binary decision.
type Classifier interface {
	Classify(fv FeatureVector) (ActivityLabel, error)
	// Model returns an identifier for the loaded model.
	Model() string
}

// centroidModelFile is the on-disk JSON layout of a trained nearest-centroid
// model: per-label feature centroids exported by the offline training
// pipeline, with optional per-feature z-score scaling.
type centroidModelFile struct {
	Name      string               `json:"name"`
	ScaleMean []float64            `json:"scale_mean,omitempty"`
	ScaleStd  []float64            `json:"scale_std,omitempty"`
	Centroids map[string][]float64 `json:"centroids"`
}

// CentroidModel is a nearest-centroid activity classifier loaded from a JSON
// model file.
type CentroidModel struct {
	name      string
	scaleMean []float64
	scaleStd  []float64
	labels    []ActivityLabel
	centroids [][]float64
}

// LoadCentroidModel reads a trained model from path. Dimensionality is
// validated once here, not per call: any centroid or scale vector whose
// length differs from FeatureCount fails with a *ModelMismatchError, and an
// unrecognized label in the file is rejected outright.
func LoadCentroidModel(path string) (*CentroidModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var mf centroidModelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	if len(mf.Centroids) == 0 {
		return nil, fmt.Errorf("model %q contains no centroids", path)
	}

	m := &CentroidModel{name: mf.Name, scaleMean: mf.ScaleMean, scaleStd: mf.ScaleStd}
	if m.name == "" {
		m.name = path
	}

	if len(mf.ScaleMean) != 0 && len(mf.ScaleMean) != FeatureCount {
		return nil, &ModelMismatchError{Path: path, ModelDims: len(mf.ScaleMean), WantDims: FeatureCount}
	}
	if len(mf.ScaleStd) != 0 && len(mf.ScaleStd) != FeatureCount {
		return nil, &ModelMismatchError{Path: path, ModelDims: len(mf.ScaleStd), WantDims: FeatureCount}
	}

	// Sort labels for a deterministic tie-break order.
	names := make([]string, 0, len(mf.Centroids))
	for name := range mf.Centroids {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		label := ActivityLabel(name)
		if !KnownActivity(label) {
			return nil, fmt.Errorf("model %q contains unrecognized label %q", path, name)
		}
		centroid := mf.Centroids[name]
		if len(centroid) != FeatureCount {
			return nil, &ModelMismatchError{Path: path, ModelDims: len(centroid), WantDims: FeatureCount}
		}
		m.labels = append(m.labels, label)
		m.centroids = append(m.centroids, centroid)
	}

	return m, nil
}

// Classify returns the label of the nearest centroid in (optionally scaled)
// feature space.
func (m *CentroidModel) Classify(fv FeatureVector) (ActivityLabel, error) {
	scaled := fv
	if len(m.scaleMean) == FeatureCount && len(m.scaleStd) == FeatureCount {
		for i := range scaled {
			if m.scaleStd[i] > 0 {
				scaled[i] = (scaled[i] - m.scaleMean[i]) / m.scaleStd[i]
			}
		}
	}

	best := -1
	bestDist := math.Inf(1)
	for i, c := range m.centroids {
		var d float64
		for j := range scaled {
			diff := scaled[j] - c[j]
			d += diff * diff
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return "", fmt.Errorf("model %q has no centroids", m.name)
	}
	return m.labels[best], nil
}

// Model returns the model identifier.
func (m *CentroidModel) Model() string { return m.name }
