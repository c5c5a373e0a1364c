package svm

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

func rings() (*mat.Dense, *mat.Dense) {
	// 内側の円が陽性、外側の円が陰性
	n := 40
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		r := 3.0
		if i%2 == 0 {
			r = 0.5
			y.Set(i, 0, 1)
		}
		theta := 2 * math.Pi * float64(i) / float64(n)
		X.Set(i, 0, r*math.Cos(theta))
		X.Set(i, 1, r*math.Sin(theta))
	}
	return X, y
}

func TestSVC_FitPredict_NonLinear(t *testing.T) {
	X, y := rings()
	svc := NewSVC()
	if err := svc.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, err := svc.Predict(X)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 40; i++ {
		if pred.At(i, 0) != y.At(i, 0) {
			t.Errorf("row %d misclassified", i)
		}
	}
	if len(svc.SupportVectors) == 0 || len(svc.SupportVectors) != len(svc.DualCoef) {
		t.Errorf("support vectors: %d, coefficients: %d", len(svc.SupportVectors), len(svc.DualCoef))
	}
}

// 双対制約: Σ α_i y_i = 0 かつ 0 < α_i <= C
func TestSVC_DualFeasibility(t *testing.T) {
	X, y := rings()
	svc := NewSVC(WithC(0.5))
	if err := svc.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	var s float64
	for _, c := range svc.DualCoef {
		s += c
		if math.Abs(c) > 0.5+1e-12 {
			t.Errorf("|α·y| = %v exceeds C", math.Abs(c))
		}
	}
	if math.Abs(s) > 1e-9 {
		t.Errorf("Σ α·y = %v, want 0", s)
	}
}

func TestSVC_GammaScale(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{0, 0, 0, 2, 2, 0, 2, 2})
	y := mat.NewDense(4, 1, []float64{0, 1, 1, 0})
	svc := NewSVC()
	if err := svc.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	// Var(X) = 1 over all entries, p = 2
	if svc.GammaFitted != 0.5 {
		t.Errorf("gamma = %v, want 0.5", svc.GammaFitted)
	}
}

func TestSVC_ProbabilitiesFollowDecision(t *testing.T) {
	X, y := rings()
	svc := NewSVC()
	if err := svc.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if svc.ProbA >= 0 {
		t.Errorf("A = %v, want negative so that P(1) grows with the decision value", svc.ProbA)
	}
	grid := mat.NewDense(3, 2, []float64{0, 0, 1.5, 0, 4, 0})
	proba, err := svc.PredictProba(grid)
	if err != nil {
		t.Fatal(err)
	}
	dec, _ := svc.DecisionFunction(grid)
	for i := 0; i < 3; i++ {
		if s := proba.At(i, 0) + proba.At(i, 1); math.Abs(s-1) > 1e-12 {
			t.Errorf("row %d sums to %v", i, s)
		}
	}
	for i := 1; i < 3; i++ {
		if (dec.AtVec(i) < dec.AtVec(i-1)) != (proba.At(i, 1) < proba.At(i-1, 1)) {
			t.Errorf("probabilities are not monotone in the decision value")
		}
	}
}

func TestPlattScaling_Separated(t *testing.T) {
	dec := []float64{-2, -1.5, -1, 1, 1.5, 2}
	labels := []float64{0, 0, 0, 1, 1, 1}
	a, b := plattScaling(dec, labels)
	if a >= 0 {
		t.Errorf("A = %v", a)
	}
	if math.Abs(b) > 1e-6 {
		t.Errorf("B = %v, want 0 for symmetric data", b)
	}
	if p := sigmoidPredict(2, a, b); p <= 0.5 || p >= 1 {
		t.Errorf("P(1 | f=2) = %v", p)
	}
}

func TestSVC_ConvergenceWarning(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(func(error) {})

	X, y := rings()
	if err := NewSVC(WithMaxIter(1)).Fit(X, y); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, w := range warnings {
		var cw *errors.ConvergenceWarning
		if errors.As(w, &cw) {
			found = true
		}
	}
	if !found {
		t.Error("expected a ConvergenceWarning with max_iter=1")
	}
}

func TestSVC_Errors(t *testing.T) {
	X, y := rings()
	_, err := NewSVC().Predict(X)
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFittedError, got %v", err)
	}

	var ve *errors.ValidationError
	if err := NewSVC(WithC(0)).Fit(X, y); !errors.As(err, &ve) {
		t.Errorf("C=0: expected ValidationError, got %v", err)
	}
	if err := NewSVC(WithGamma("large")).Fit(X, y); !errors.As(err, &ve) {
		t.Errorf("bad gamma: expected ValidationError, got %v", err)
	}
	if err := NewSVC().SetParams(map[string]interface{}{"kernel": "poly"}); !errors.As(err, &ve) {
		t.Errorf("poly kernel: expected ValidationError, got %v", err)
	}
}
