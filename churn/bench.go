package churn

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/metrics"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/report"
	"github.com/YuminosukeSato/churnlab/viz"
)

// BenchResult holds the fitted bench models and their test scores, best AUC
// first.
type BenchResult struct {
	Scorecards []*metrics.Scorecard
	Models     map[string]Model
}

// Best returns the scorecard with the highest AUC.
func (r *BenchResult) Best() *metrics.Scorecard {
	if len(r.Scorecards) == 0 {
		return nil
	}
	return r.Scorecards[0]
}

// design returns the train and test matrices a family is fit on.
type design struct {
	f                       *Features
	scaledTrain, scaledTest *mat.Dense
}

func newDesign(f *Features) (*design, error) {
	tr, te, err := f.Scaled()
	if err != nil {
		return nil, errors.Wrap(err, "standardize features")
	}
	return &design{f: f, scaledTrain: tr, scaledTest: te}, nil
}

func (d *design) matrices(family string) (train, test *mat.Dense) {
	if NeedsScaling(family) {
		return d.scaledTrain, d.scaledTest
	}
	return d.f.XTrain, d.f.XTest
}

// predictions returns the labels and churn probabilities of m on X.
func predictions(m Model, X mat.Matrix) (pred, proba *mat.VecDense, err error) {
	p, err := m.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	pr, err := m.PredictProba(X)
	if err != nil {
		return nil, nil, err
	}
	n, _ := X.Dims()
	pred = mat.NewVecDense(n, nil)
	proba = mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		pred.SetVec(i, p.At(i, 0))
		proba.SetVec(i, pr.At(i, 1))
	}
	return pred, proba, nil
}

// evaluate fits m on the training rows and scores it on the test rows.
func evaluate(name string, m Model, XTrain, XTest *mat.Dense, yTrain, yTest []float64) (*metrics.Scorecard, error) {
	start := time.Now()
	var pred, proba *mat.VecDense
	err := errors.SafeExecute("evaluate "+name, func() error {
		if err := m.Fit(XTrain, mat.NewVecDense(len(yTrain), yTrain)); err != nil {
			return errors.Wrapf(err, "fit %s", name)
		}
		var err error
		pred, proba, err = predictions(m, XTest)
		return errors.Wrapf(err, "predict %s", name)
	})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	card, err := metrics.Score(name, mat.NewVecDense(len(yTest), yTest), pred, proba)
	if err != nil {
		return nil, errors.Wrapf(err, "score %s", name)
	}
	card.Params = m.GetParams()
	card.TrainSeconds = elapsed.Seconds()
	return card, nil
}

// Bench fits every family with its defaults on the train split, scores it on
// the test split and writes roc_curves.png, model_metrics.txt and one
// confusion matrix per model to dir. The metrics table is also printed to w.
func Bench(ctx context.Context, f *Features, families []string, seed int64, dir string, w io.Writer) (*BenchResult, error) {
	if len(families) == 0 {
		families = Families
	}
	d, err := newDesign(f)
	if err != nil {
		return nil, err
	}
	logger := log.GetLoggerWithName("bench").With(log.StageKey, "bench")

	res := &BenchResult{Models: make(map[string]Model, len(families))}
	for _, family := range families {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := newFamily(family, seed)
		if err != nil {
			return nil, err
		}
		tr, te := d.matrices(family)
		card, err := evaluate(family, m, tr, te, f.YTrain, f.YTest)
		if err != nil {
			return nil, err
		}
		res.Models[family] = m
		res.Scorecards = append(res.Scorecards, card)
		logger.Info("model evaluated",
			log.ModelNameKey, family,
			log.AccuracyKey, card.Accuracy,
			log.PrecisionKey, card.Precision,
			log.RecallKey, card.Recall,
			log.F1Key, card.F1,
			log.AUCKey, card.AUC,
			log.DurationMsKey, card.TrainSeconds*1000)
	}
	sort.SliceStable(res.Scorecards, func(i, j int) bool {
		return res.Scorecards[i].AUC > res.Scorecards[j].AUC
	})

	if err := writeBenchArtifacts(res, dir, w); err != nil {
		return nil, err
	}
	return res, nil
}

func writeBenchArtifacts(res *BenchResult, dir string, w io.Writer) error {
	curves := make([]viz.Curve, len(res.Scorecards))
	for i, c := range res.Scorecards {
		curves[i] = viz.Curve{Label: c.Model, AUC: c.AUC, Points: c.ROC}
	}
	if err := viz.ROCCurves(filepath.Join(dir, "roc_curves.png"), "ROC Curve Comparison", curves); err != nil {
		return err
	}

	path := filepath.Join(dir, "model_metrics.txt")
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	report.Scorecards(file, res.Scorecards)
	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	if w != nil {
		fmt.Fprintln(w, "Model comparison (test split, best AUC first)")
		report.Scorecards(w, res.Scorecards)
	}

	labels := ClassLabels[:]
	for _, c := range res.Scorecards {
		name := "confusion_" + slug(c.Model) + ".png"
		if err := viz.Confusion(filepath.Join(dir, name), "Confusion Matrix: "+c.Model, labels, c.Confusion); err != nil {
			return err
		}
	}
	return nil
}

// slug turns a family name into a file name fragment.
func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
