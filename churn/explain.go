package churn

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/explain"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/report"
	"github.com/YuminosukeSato/churnlab/viz"
)

// AutoModel selects the bench tree model with the best AUC.
const AutoModel = "auto"

// ExplainOptions configures Explain.
type ExplainOptions struct {
	// Model is a family name or AutoModel.
	Model string
	// Component is the 1-based PLS component whose loadings are listed.
	Component int
	TopN      int
}

// Explanation is the result of Explain.
type Explanation struct {
	Model       string
	SHAP        *explain.SHAPValues // PLS component columns only
	Importances []explain.FeatureImportance
	Loadings    []explain.Loading
}

// pickTreeModel resolves opts.Model against the bench results.
func pickTreeModel(name string, bench *BenchResult) (string, explain.TreeModel, error) {
	if name == AutoModel {
		for _, c := range bench.Scorecards {
			if tm, ok := bench.Models[c.Model].(explain.TreeModel); ok {
				return c.Model, tm, nil
			}
		}
		return "", nil, errors.NewValidationError("explain.model", "no tree model in the bench", name)
	}
	m, ok := bench.Models[name]
	if !ok {
		return "", nil, errors.NewValidationError("explain.model", "model was not benched", name)
	}
	tm, ok := m.(explain.TreeModel)
	if !ok {
		return "", nil, errors.NewValidationError("explain.model", "TreeSHAP needs a tree model", name)
	}
	return name, tm, nil
}

// componentColumns returns the PLS_* feature names and their column indices.
func componentColumns(names []string) ([]string, []int) {
	var cols []string
	var idx []int
	for j, n := range names {
		if strings.HasPrefix(n, "PLS_") {
			cols = append(cols, n)
			idx = append(idx, j)
		}
	}
	return cols, idx
}

func selectColumns(X *mat.Dense, idx []int) *mat.Dense {
	r, _ := X.Dims()
	out := mat.NewDense(r, len(idx), nil)
	for k, j := range idx {
		for i := 0; i < r; i++ {
			out.Set(i, k, X.At(i, j))
		}
	}
	return out
}

// Explain attributes the chosen tree model's test-set output to the PLS
// components with TreeSHAP, writes shap_summary.png and prints the mean |SHAP|
// ranking, then lists the topN original features of one component by the
// magnitude of their PLS weight.
func Explain(ctx context.Context, opts ExplainOptions, bench *BenchResult, f *Features, proj *Projection, dir string, w io.Writer) (*Explanation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, tm, err := pickTreeModel(opts.Model, bench)
	if err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("explain").With(log.StageKey, "explain", log.ModelNameKey, name)

	all, err := explain.TreeSHAP(tm, f.XTest, f.Names)
	if err != nil {
		return nil, errors.Wrapf(err, "explain %s", name)
	}
	cols, idx := componentColumns(f.Names)
	if len(cols) == 0 {
		return nil, errors.NewColumnError("Explain", "PLS_1")
	}
	shap, err := all.Select(cols)
	if err != nil {
		return nil, err
	}
	out := &Explanation{Model: name, SHAP: shap, Importances: shap.MeanAbs()}

	if err := viz.SHAPSummary(filepath.Join(dir, "shap_summary.png"), shap.Values, selectColumns(f.XTest, idx), cols, len(cols)); err != nil {
		return nil, err
	}

	if out.Loadings, err = explain.TopLoadings(proj.PLS.XWeights, proj.Features, opts.Component, opts.TopN); err != nil {
		return nil, err
	}

	if w != nil {
		fmt.Fprintf(w, "SHAP importance of the PLS components (%s, base value %.4f)\n", name, all.BaseValue)
		report.Importances(w, out.Importances)
		fmt.Fprintf(w, "Top %d features of %s\n", len(out.Loadings), ComponentName(opts.Component))
		report.Loadings(w, opts.Component, out.Loadings)
	}
	logger.Info("explanation written",
		"explain.base_value", all.BaseValue,
		"explain.top_component", out.Importances[0].Feature,
		log.ComponentsKey, len(cols))
	return out, nil
}
