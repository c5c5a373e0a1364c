package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Rows copies X into row-major slices. Tree and kernel models index samples
// many times per split, so they work on plain slices instead of At calls.
func Rows(X mat.Matrix) [][]float64 {
	r, c := X.Dims()
	out := make([][]float64, r)
	backing := make([]float64, r*c)
	for i := 0; i < r; i++ {
		row := backing[i*c : (i+1)*c]
		if d, ok := X.(mat.RawRowViewer); ok {
			copy(row, d.RawRowView(i))
		} else {
			for j := 0; j < c; j++ {
				row[j] = X.At(i, j)
			}
		}
		out[i] = row
	}
	return out
}

// Column returns column j of X as a slice.
func Column(X mat.Matrix, j int) []float64 {
	r, _ := X.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = X.At(i, j)
	}
	return out
}

// BinaryTarget validates fit inputs and returns y as 0/1 values. y must be a
// single column holding only 0 and 1, with both classes present.
func BinaryTarget(op string, X, y mat.Matrix) ([]float64, error) {
	xr, xc := X.Dims()
	if xr == 0 || xc == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "%s", op)
	}
	yr, yc := y.Dims()
	if yc != 1 {
		return nil, errors.NewDimensionError(op, 1, yc, 1)
	}
	if yr != xr {
		return nil, errors.NewDimensionError(op, xr, yr, 0)
	}
	if err := errors.CheckMatrix(op, X, xr, xc, 0); err != nil {
		return nil, err
	}

	labels := make([]float64, yr)
	var positives int
	for i := range labels {
		v := y.At(i, 0)
		switch v {
		case 0:
		case 1:
			positives++
		default:
			return nil, errors.NewValueError(op, fmt.Sprintf("labels must be 0 or 1, got %v at row %d", v, i))
		}
		labels[i] = v
	}
	if positives == 0 || positives == yr {
		return nil, errors.NewValueError(op, "training labels contain a single class")
	}
	return labels, nil
}

// ProbaMatrix builds the n×2 [P(0), P(1)] matrix from positive-class scores.
func ProbaMatrix(p1 []float64) *mat.Dense {
	out := mat.NewDense(len(p1), 2, nil)
	for i, p := range p1 {
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out
}

// LabelsFromProba thresholds positive-class probabilities at 0.5.
func LabelsFromProba(p1 []float64) *mat.Dense {
	out := mat.NewDense(len(p1), 1, nil)
	for i, p := range p1 {
		if p > 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out
}
