package cross_decomposition

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

func randomProblem(n, p int, seed int64) (*mat.Dense, *mat.Dense) {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(n, p, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		var z float64
		for j := 0; j < p; j++ {
			v := rng.NormFloat64() * float64(j+1)
			X.Set(i, j, v)
			z += v * float64(p-j)
		}
		if z+rng.NormFloat64() > 0 {
			y.Set(i, 0, 1)
		}
	}
	return X, y
}

func TestPLSScoresAreOrthogonal(t *testing.T) {
	X, y := randomProblem(60, 6, 1)
	pls := NewPLSRegression(4)
	scores, err := pls.FitTransform(X, y)
	if err != nil {
		t.Fatal(err)
	}
	r, c := scores.Dims()
	if r != 60 || c != 4 {
		t.Fatalf("scores shape = %d×%d, want 60×4", r, c)
	}
	for a := 0; a < c; a++ {
		for b := a + 1; b < c; b++ {
			dot := mat.Dot(mat.NewVecDense(r, mat.Col(nil, a, scores)), mat.NewVecDense(r, mat.Col(nil, b, scores)))
			if math.Abs(dot) > 1e-8 {
				t.Errorf("scores %d and %d not orthogonal: %g", a, b, dot)
			}
		}
	}
}

func TestPLSTransformMatchesRotations(t *testing.T) {
	X, y := randomProblem(40, 5, 2)
	pls := NewPLSRegression(3)
	if err := pls.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	scores, err := pls.Transform(X)
	if err != nil {
		t.Fatal(err)
	}

	var want mat.Dense
	want.Mul(pls.standardize(X), pls.XRotations)
	if !mat.EqualApprox(scores, &want, 1e-12) {
		t.Error("Transform differs from X_scaled · rotations")
	}

	// 第1成分の回転は重みそのもの
	for j := 0; j < 5; j++ {
		if math.Abs(pls.XRotations.At(j, 0)-pls.XWeights.At(j, 0)) > 1e-10 {
			t.Errorf("rotation[%d,0] = %v, weight = %v", j, pls.XRotations.At(j, 0), pls.XWeights.At(j, 0))
		}
	}
}

func TestPLSWeightSignConvention(t *testing.T) {
	X, y := randomProblem(50, 4, 3)
	pls := NewPLSRegression(4)
	if err := pls.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 4; k++ {
		col := mat.Col(nil, k, pls.XWeights)
		best, norm := 0.0, 0.0
		for _, v := range col {
			if math.Abs(v) > math.Abs(best) {
				best = v
			}
			norm += v * v
		}
		if best < 0 {
			t.Errorf("component %d: largest |weight| is negative", k)
		}
		if math.Abs(norm-1) > 1e-10 {
			t.Errorf("component %d: weight norm² = %v", k, norm)
		}
	}
}

func TestPLSExhaustedTarget(t *testing.T) {
	// 1列目が y と一致し、2列目は y と直交する
	X := mat.NewDense(4, 2, []float64{
		0, 1,
		0, -1,
		1, 1,
		1, -1,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	pls := NewPLSRegression(2)
	scores, err := pls.FitTransform(X, y)
	if err != nil {
		t.Fatal(err)
	}
	if pls.NIter != 1 {
		t.Errorf("NIter = %d, want 1", pls.NIter)
	}
	for i := 0; i < 4; i++ {
		if scores.At(i, 1) != 0 {
			t.Errorf("second component score at %d = %v, want 0", i, scores.At(i, 1))
		}
	}
	r2, err := pls.Score(X, y)
	if err != nil || math.Abs(r2-1) > 1e-10 {
		t.Errorf("R² = %v, err = %v, want 1", r2, err)
	}
}

func TestPLSValidation(t *testing.T) {
	X, y := randomProblem(10, 3, 4)

	err := NewPLSRegression(4).Fit(X, y)
	var valErr *errors.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("too many components: got %v, want ValidationError", err)
	}

	_, err = NewPLSRegression(2).Transform(X)
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("unfitted Transform: got %v, want NotFittedError", err)
	}

	err = NewPLSRegression(2).Fit(X, mat.NewDense(9, 1, nil))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Errorf("row mismatch: got %v, want DimensionError", err)
	}
}
