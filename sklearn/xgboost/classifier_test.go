package xgboost

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/sklearn/gbdt"
)

func TestXGBClassifier_Defaults(t *testing.T) {
	x := NewXGBClassifier()
	p := x.GetParams()
	if p["n_estimators"] != 100 || p["learning_rate"] != 0.3 || p["max_depth"] != 6 || p["reg_lambda"] != 1.0 {
		t.Errorf("unexpected defaults %v", p)
	}
	if x.Config.Policy != gbdt.DepthWise {
		t.Errorf("policy = %v", x.Config.Policy)
	}
}

func TestXGBClassifier_SetParams(t *testing.T) {
	x := NewXGBClassifier()
	// JSON から読んだ値は float64
	err := x.SetParams(map[string]interface{}{
		"n_estimators":  53.0,
		"learning_rate": 0.11486744748271062,
		"max_depth":     15.0,
	})
	if err != nil {
		t.Fatal(err)
	}
	if x.Config.NEstimators != 53 || x.Config.MaxDepth != 15 || x.Config.LearningRate != 0.11486744748271062 {
		t.Errorf("config = %+v", x.Config)
	}

	if err := x.SetParams(map[string]interface{}{"eta": 0.05}); err != nil || x.Config.LearningRate != 0.05 {
		t.Errorf("eta alias: %v, %v", err, x.Config.LearningRate)
	}

	var ve *errors.ValidationError
	if err := x.SetParams(map[string]interface{}{"num_leaves": 31}); !errors.As(err, &ve) {
		t.Errorf("unknown key: expected ValidationError, got %v", err)
	}
	if err := x.SetParams(map[string]interface{}{"max_depth": 2.5}); !errors.As(err, &ve) {
		t.Errorf("fractional depth: expected ValidationError, got %v", err)
	}
}

func TestXGBClassifier_Fit(t *testing.T) {
	X := mat.NewDense(30, 2, nil)
	y := mat.NewDense(30, 1, nil)
	for i := 0; i < 30; i++ {
		X.Set(i, 0, float64(i%10))
		X.Set(i, 1, float64(i))
		if i%10 >= 5 {
			y.Set(i, 0, 1)
		}
	}
	x := NewXGBClassifier().WithNEstimators(20).WithMaxDepth(2)
	if err := x.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	pred, _ := x.Predict(X)
	for i := 0; i < 30; i++ {
		if pred.At(i, 0) != y.At(i, 0) {
			t.Errorf("row %d misclassified", i)
		}
	}
	for _, tr := range x.Booster.Trees {
		if tr.Depth() > 2 {
			t.Errorf("tree depth %d exceeds 2", tr.Depth())
		}
	}
}
