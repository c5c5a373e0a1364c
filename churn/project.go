package churn

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/dataset"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/preprocessing"
	"github.com/YuminosukeSato/churnlab/sklearn/cross_decomposition"
)

// Projection is the output of the PLS stage.
type Projection struct {
	// Table holds PLS_1..PLS_n, courier_id, then the non-numeric columns.
	Table *dataset.Table
	// Features are the projected input columns, in x_weights row order.
	Features   []string
	Components []string
	Scaler     *preprocessing.StandardScaler
	PLS        *cross_decomposition.PLSRegression
	// Realigned reports whether the id check had to sort both sides.
	Realigned bool
}

// ComponentName is the column name of the k-th (1-based) component.
func ComponentName(k int) string { return "PLS_" + strconv.Itoa(k) }

// Project standardizes the numeric features, fits a PLS projection of
// min(#features, maxComponents) components with churn_flag as target, and
// re-joins the scores with the remaining columns on courier_id.
func Project(t *dataset.Table, maxComponents int) (*Projection, error) {
	if maxComponents < 1 {
		return nil, errors.NewValidationError("max_components", "must be positive", maxComponents)
	}
	if err := t.Require("Project", ColCourierID, ColChurn); err != nil {
		return nil, err
	}
	if err := checkIDs(t); err != nil {
		return nil, err
	}

	var features []string
	for _, name := range NumericFeatures {
		if name != ColCourierID && name != ColChurn {
			features = append(features, name)
		}
	}
	if err := t.Require("Project", features...); err != nil {
		return nil, err
	}
	isFeature := make(map[string]bool, len(features))
	for _, f := range features {
		isFeature[f] = true
	}
	var others []string
	for _, name := range t.Columns() {
		if !isFeature[name] && name != ColCourierID {
			others = append(others, name)
		}
	}

	X, err := t.Matrix(features)
	if err != nil {
		return nil, errors.Wrap(err, "numeric features")
	}
	y, err := labelValues(t)
	if err != nil {
		return nil, err
	}

	scaler := preprocessing.NewStandardScalerDefault()
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		return nil, errors.Wrap(err, "standardize")
	}
	n := min(len(features), maxComponents)
	pls := cross_decomposition.NewPLSRegression(n)
	scores, err := pls.FitTransform(Xs, mat.NewDense(len(y), 1, y))
	if err != nil {
		return nil, errors.Wrap(err, "fit PLS")
	}

	components := make([]string, n)
	for k := range components {
		components[k] = ComponentName(k + 1)
	}
	scoreTable, err := dataset.FromMatrix(scores, components)
	if err != nil {
		return nil, err
	}
	ids, _ := t.Column(ColCourierID)
	if scoreTable, err = scoreTable.WithColumn(ids.Clone()); err != nil {
		return nil, err
	}
	rest, err := t.Select("Project", append([]string{ColCourierID}, others...)...)
	if err != nil {
		return nil, err
	}

	realigned := false
	if !sameIDs(scoreTable, rest) {
		realigned = true
		log.GetLoggerWithName("project").Warn("courier_id order mismatch, sorting both sides")
		if scoreTable, err = scoreTable.SortBy(ColCourierID); err != nil {
			return nil, err
		}
		if rest, err = rest.SortBy(ColCourierID); err != nil {
			return nil, err
		}
		if !sameIDs(scoreTable, rest) {
			return nil, errors.NewValidationError(ColCourierID, "projected and original ids differ", scoreTable.NumRows())
		}
	}
	out, err := scoreTable.Concat(rest.Drop(ColCourierID))
	if err != nil {
		return nil, errors.Wrap(err, "join projection")
	}

	log.GetLoggerWithName("project").Info("features projected",
		log.RowsKey, out.NumRows(),
		log.FeaturesKey, len(features),
		log.ComponentsKey, n,
		"project.realigned", realigned,
		log.FingerprintKey, out.FingerprintHex())
	return &Projection{
		Table:      out,
		Features:   features,
		Components: components,
		Scaler:     scaler,
		PLS:        pls,
		Realigned:  realigned,
	}, nil
}

// checkIDs rejects null or duplicate courier ids.
func checkIDs(t *dataset.Table) error {
	ids, _ := t.Column(ColCourierID)
	seen := make(map[string]int, ids.Len())
	for i := 0; i < ids.Len(); i++ {
		if ids.IsNull(i) {
			return errors.NewValidationError(ColCourierID, fmt.Sprintf("null id at row %d", i), nil)
		}
		key := ids.Text(i)
		if j, dup := seen[key]; dup {
			return errors.NewValidationError(ColCourierID, fmt.Sprintf("duplicate id at rows %d and %d", j, i), key)
		}
		seen[key] = i
	}
	return nil
}

func sameIDs(a, b *dataset.Table) bool {
	ca, _ := a.Column(ColCourierID)
	cb, _ := b.Column(ColCourierID)
	if ca.Len() != cb.Len() {
		return false
	}
	for i := 0; i < ca.Len(); i++ {
		if ca.Text(i) != cb.Text(i) {
			return false
		}
	}
	return true
}
