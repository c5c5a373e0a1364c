package churn

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/metrics"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/report"
	"github.com/YuminosukeSato/churnlab/viz"
)

// FinalResult is the evaluation of the retrained model.
type FinalResult struct {
	Family    string
	Model     Model
	Report    *metrics.Report
	Scorecard *metrics.Scorecard
}

// Final rebuilds the model described by params, retrains it on the whole
// train split and evaluates it on the test split. It prints the
// classification report and a summary table to w and writes final_roc.png,
// final_confusion.png, final_model.gob and final_model.json to dir.
func Final(ctx context.Context, params map[string]interface{}, f *Features, seed int64, runID, dir string, w io.Writer) (*FinalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := NewModel(params, seed)
	if err != nil {
		return nil, err
	}
	family := params[ModelKey].(string)
	d, err := newDesign(f)
	if err != nil {
		return nil, err
	}
	tr, te := d.matrices(family)
	card, err := evaluate(family, m, tr, te, f.YTrain, f.YTest)
	if err != nil {
		return nil, err
	}
	pred, _, err := predictions(m, te)
	if err != nil {
		return nil, err
	}
	rep, err := metrics.ClassificationReport(mat.NewVecDense(len(f.YTest), f.YTest), pred, ClassLabels)
	if err != nil {
		return nil, err
	}

	if w != nil {
		fmt.Fprintf(w, "Classification report (%s)\n", family)
		report.ClassificationReport(w, rep)
		fmt.Fprintf(w, "AUC-ROC: %.4f\n", card.AUC)
		report.Scorecards(w, []*metrics.Scorecard{card})
	}

	curve := viz.Curve{Label: family, AUC: card.AUC, Points: card.ROC}
	if err := viz.ROCCurves(filepath.Join(dir, "final_roc.png"), "ROC Curve: "+family, []viz.Curve{curve}); err != nil {
		return nil, err
	}
	if err := viz.Confusion(filepath.Join(dir, "final_confusion.png"), "Confusion Matrix: "+family, ClassLabels[:], card.Confusion); err != nil {
		return nil, err
	}

	if err := model.SaveModel(m, filepath.Join(dir, "final_model.gob")); err != nil {
		return nil, errors.Wrap(err, "save final model")
	}
	snap := &model.Snapshot{
		ModelType: family,
		RunID:     runID,
		TrainedAt: time.Now().UTC(),
		Params:    m.GetParams(),
		Features:  f.Names,
		Metrics: map[string]float64{
			"accuracy":  card.Accuracy,
			"precision": card.Precision,
			"recall":    card.Recall,
			"f1_score":  card.F1,
			"auc_roc":   card.AUC,
		},
	}
	if err := snap.WriteFile(filepath.Join(dir, "final_model.json")); err != nil {
		return nil, err
	}

	log.GetLoggerWithName("final").Info("final model evaluated",
		log.StageKey, "final",
		log.ModelNameKey, family,
		log.HyperParamsKey, params,
		log.AccuracyKey, card.Accuracy,
		log.F1Key, card.F1,
		log.AUCKey, card.AUC)
	return &FinalResult{Family: family, Model: m, Report: rep, Scorecard: card}, nil
}
