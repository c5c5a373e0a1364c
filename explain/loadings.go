package explain

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Loading is one feature weight of a PLS component.
type Loading struct {
	Feature string
	Weight  float64
}

// TopLoadings ranks column component-1 of weights (features × components) by
// |weight| and returns the first topN with their sign. component is 1-based.
func TopLoadings(weights mat.Matrix, featureNames []string, component, topN int) ([]Loading, error) {
	p, n := weights.Dims()
	if len(featureNames) != p {
		return nil, errors.NewDimensionError("TopLoadings", p, len(featureNames), 0)
	}
	if component < 1 || component > n {
		return nil, errors.NewValidationError("component", fmt.Sprintf("must be in [1, %d]", n), component)
	}
	if topN < 1 {
		return nil, errors.NewValidationError("top_n", "must be positive", topN)
	}
	out := make([]Loading, p)
	for i := 0; i < p; i++ {
		out[i] = Loading{Feature: featureNames[i], Weight: weights.At(i, component-1)}
	}
	sort.SliceStable(out, func(a, b int) bool { return math.Abs(out[a].Weight) > math.Abs(out[b].Weight) })
	if topN < len(out) {
		out = out[:topN]
	}
	return out, nil
}
