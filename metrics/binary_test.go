package metrics

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

func vec(v ...float64) *mat.VecDense { return mat.NewVecDense(len(v), v) }

// captureWarnings は Warn の出力を集める
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return &got
}

func TestPrecisionRecallF1(t *testing.T) {
	yTrue := vec(0, 0, 1, 1, 1, 0)
	yPred := vec(0, 1, 1, 0, 1, 0)

	p, err := Precision(yTrue, yPred)
	if err != nil || math.Abs(p-2.0/3) > 1e-12 {
		t.Errorf("Precision = %v, err = %v", p, err)
	}
	r, err := Recall(yTrue, yPred)
	if err != nil || math.Abs(r-2.0/3) > 1e-12 {
		t.Errorf("Recall = %v, err = %v", r, err)
	}
	f, err := F1Score(yTrue, yPred)
	if err != nil || math.Abs(f-2.0/3) > 1e-12 {
		t.Errorf("F1Score = %v, err = %v", f, err)
	}
}

func TestZeroDivisionWarns(t *testing.T) {
	warnings := captureWarnings(t)

	yTrue := vec(0, 1, 0, 1)
	yPred := vec(0, 0, 0, 0)

	p, err := Precision(yTrue, yPred)
	if err != nil || p != 0 {
		t.Errorf("Precision = %v, err = %v, want 0", p, err)
	}
	f, err := F1Score(yTrue, yPred)
	if err != nil || f != 0 {
		t.Errorf("F1Score = %v, err = %v, want 0", f, err)
	}
	if len(*warnings) != 1 {
		t.Fatalf("expected one warning from Precision, got %d", len(*warnings))
	}
	var w *errors.UndefinedMetricWarning
	if !errors.As((*warnings)[0], &w) {
		t.Errorf("expected UndefinedMetricWarning, got %T", (*warnings)[0])
	}
}

func TestAUCSingleClassWarns(t *testing.T) {
	warnings := captureWarnings(t)
	got, err := AUC(vec(1, 1, 1), vec(0.2, 0.4, 0.9))
	if err != nil || got != 0.5 {
		t.Errorf("AUC = %v, err = %v, want 0.5", got, err)
	}
	if len(*warnings) != 1 {
		t.Errorf("expected a warning, got %d", len(*warnings))
	}
}

func TestAUCMatchesROCArea(t *testing.T) {
	yTrue := vec(0, 1, 0, 1, 1, 0, 1, 0)
	yScore := vec(0.1, 0.8, 0.4, 0.4, 0.9, 0.3, 0.2, 0.7)

	auc, err := AUC(yTrue, yScore)
	if err != nil {
		t.Fatal(err)
	}
	roc, err := ROCCurve(yTrue, yScore)
	if err != nil {
		t.Fatal(err)
	}
	var area float64
	for k := 1; k < len(roc); k++ {
		area += (roc[k].FPR - roc[k-1].FPR) * (roc[k].TPR + roc[k-1].TPR) / 2
	}
	if math.Abs(area-auc) > 1e-12 {
		t.Errorf("trapezoid area %v != AUC %v", area, auc)
	}
	last := roc[len(roc)-1]
	if last.FPR != 1 || last.TPR != 1 {
		t.Errorf("ROC must end at (1,1), got (%v,%v)", last.FPR, last.TPR)
	}
	// 同点の 0.4 は1点にまとまる
	if len(roc) != 8 {
		t.Errorf("expected 8 points (origin + 7 distinct scores), got %d", len(roc))
	}
}

func TestConfusionMatrix(t *testing.T) {
	yTrue := vec(0, 0, 0, 1, 1)
	yPred := vec(0, 1, 0, 1, 1)

	cm, err := ConfusionMatrix(yTrue, yPred, "")
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(2, 2, []float64{2, 1, 0, 2})
	if !mat.Equal(cm, want) {
		t.Errorf("counts = %v, want %v", mat.Formatted(cm), mat.Formatted(want))
	}

	cm, err = ConfusionMatrix(yTrue, yPred, "true")
	if err != nil {
		t.Fatal(err)
	}
	want = mat.NewDense(2, 2, []float64{2.0 / 3, 1.0 / 3, 0, 1})
	if !mat.EqualApprox(cm, want, 1e-12) {
		t.Errorf("normalized = %v, want %v", mat.Formatted(cm), mat.Formatted(want))
	}

	if _, err := ConfusionMatrix(yTrue, yPred, "all"); err == nil {
		t.Error("expected error for unsupported normalize")
	}
}

func TestClassificationReport(t *testing.T) {
	yTrue := vec(0, 0, 0, 1, 1)
	yPred := vec(0, 1, 0, 1, 1)

	r, err := ClassificationReport(yTrue, yPred, [2]string{"0", "1"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Classes[0].Support != 3 || r.Classes[1].Support != 2 {
		t.Errorf("supports = %d/%d, want 3/2", r.Classes[0].Support, r.Classes[1].Support)
	}
	if math.Abs(r.Classes[0].Precision-1) > 1e-12 || math.Abs(r.Classes[0].Recall-2.0/3) > 1e-12 {
		t.Errorf("class 0 = %+v", r.Classes[0])
	}
	if math.Abs(r.Accuracy-0.8) > 1e-12 {
		t.Errorf("accuracy = %v, want 0.8", r.Accuracy)
	}
	wantMacro := (r.Classes[0].F1 + r.Classes[1].F1) / 2
	if math.Abs(r.MacroAvg.F1-wantMacro) > 1e-12 {
		t.Errorf("macro F1 = %v, want %v", r.MacroAvg.F1, wantMacro)
	}
	text := r.String()
	for _, s := range []string{"precision", "accuracy", "macro avg", "weighted avg"} {
		if !strings.Contains(text, s) {
			t.Errorf("report text missing %q:\n%s", s, text)
		}
	}
}

func TestScore(t *testing.T) {
	yTrue := vec(0, 0, 1, 1)
	proba := vec(0.1, 0.6, 0.7, 0.9)
	pred := vec(0, 1, 1, 1)

	s, err := Score("Decision Tree", yTrue, pred, proba)
	if err != nil {
		t.Fatal(err)
	}
	if s.AUC != 1 || s.Recall != 1 || math.Abs(s.Precision-2.0/3) > 1e-12 {
		t.Errorf("unexpected scorecard %+v", s)
	}
	if s.Confusion.At(0, 1) != 0.5 {
		t.Errorf("row-normalized FP rate = %v, want 0.5", s.Confusion.At(0, 1))
	}
}
