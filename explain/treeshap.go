// Package explain computes additive feature attributions for tree ensembles
// (exact path-dependent TreeSHAP) and ranks PLS component loadings.
package explain

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/core/parallel"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/sklearn/tree"
)

// TreeModel is implemented by every tree-based classifier. The explained
// output is offset + weight·Σ tree outputs: probability for single trees and
// forests, log-odds for boosted models.
type TreeModel interface {
	Ensemble() (trees []*tree.Tree, weight, offset float64)
}

// SHAPValues holds SHAP values for model interpretation.
type SHAPValues struct {
	Values       *mat.Dense // samples × features
	BaseValue    float64    // expected model output over the training data
	FeatureNames []string
}

// FeatureImportance is one entry of a mean |SHAP| ranking.
type FeatureImportance struct {
	Feature     string
	MeanAbsSHAP float64
}

// TreeSHAP computes exact SHAP values for every row of X. Row i satisfies
// Σ_j Values[i][j] + BaseValue = model output for X[i].
func TreeSHAP(m TreeModel, X mat.Matrix, featureNames []string) (*SHAPValues, error) {
	trees, weight, offset := m.Ensemble()
	if len(trees) == 0 {
		return nil, errors.NewNotFittedError("TreeSHAP", "Explain")
	}
	rows, cols := X.Dims()
	if rows == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "TreeSHAP")
	}
	if featureNames != nil && len(featureNames) != cols {
		return nil, errors.NewDimensionError("TreeSHAP", cols, len(featureNames), 1)
	}
	for i, t := range trees {
		if err := t.Validate(cols); err != nil {
			return nil, errors.Wrapf(err, "tree %d", i)
		}
	}

	base := offset
	for _, t := range trees {
		base += weight * expectedValue(t)
	}

	data := model.Rows(X)
	values := mat.NewDense(rows, cols, nil)
	parallel.Parallelize(rows, func(start, end int) {
		phi := make([]float64, cols)
		for i := start; i < end; i++ {
			for j := range phi {
				phi[j] = 0
			}
			for _, t := range trees {
				explainTree(t, data[i], phi, weight)
			}
			values.SetRow(i, phi)
		}
	})

	log.GetLoggerWithName("explain").Debug("shap values computed",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"shap.trees", len(trees),
		"shap.base_value", base)
	return &SHAPValues{Values: values, BaseValue: base, FeatureNames: featureNames}, nil
}

// expectedValue is the cover-weighted mean of the leaf values.
func expectedValue(t *tree.Tree) float64 {
	root := t.Nodes[0].Cover
	var s float64
	for _, n := range t.Nodes {
		if n.IsLeaf() {
			s += n.Value * n.Cover / root
		}
	}
	return s
}

// MeanAbs ranks features by mean |SHAP| over the rows, largest first.
func (s *SHAPValues) MeanAbs() []FeatureImportance {
	rows, cols := s.Values.Dims()
	out := make([]FeatureImportance, cols)
	for j := 0; j < cols; j++ {
		var sum float64
		for i := 0; i < rows; i++ {
			v := s.Values.At(i, j)
			if v < 0 {
				v = -v
			}
			sum += v
		}
		name := ""
		if s.FeatureNames != nil {
			name = s.FeatureNames[j]
		}
		out[j] = FeatureImportance{Feature: name, MeanAbsSHAP: sum / float64(rows)}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].MeanAbsSHAP > out[b].MeanAbsSHAP })
	return out
}

// Select keeps only the named columns, in the given order.
func (s *SHAPValues) Select(names []string) (*SHAPValues, error) {
	index := make(map[string]int, len(s.FeatureNames))
	for j, n := range s.FeatureNames {
		index[n] = j
	}
	rows, _ := s.Values.Dims()
	out := mat.NewDense(rows, len(names), nil)
	for k, n := range names {
		j, ok := index[n]
		if !ok {
			return nil, errors.NewColumnError("SHAPValues.Select", n)
		}
		for i := 0; i < rows; i++ {
			out.Set(i, k, s.Values.At(i, j))
		}
	}
	return &SHAPValues{Values: out, BaseValue: s.BaseValue, FeatureNames: append([]string(nil), names...)}, nil
}
