package model_selection

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func labels(n, positives int) []float64 {
	y := make([]float64, n)
	for i := 0; i < positives; i++ {
		y[i*n/positives] = 1
	}
	return y
}

func TestStratifiedSplitSizes(t *testing.T) {
	tests := []struct {
		name                  string
		n, positives          int
		testSize              float64
		wantTest, wantTestPos int
	}{
		{"100 rows 30% churn", 100, 30, 0.2, 20, 6},
		{"ceil rounding", 11, 4, 0.2, 3, 1},
		{"inner validation split", 80, 24, 0.2, 16, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y := labels(tt.n, tt.positives)
			s, err := StratifiedSplit(y, tt.testSize, 42)
			if err != nil {
				t.Fatal(err)
			}
			if len(s.Test) != tt.wantTest || len(s.Train)+len(s.Test) != tt.n {
				t.Fatalf("sizes train=%d test=%d", len(s.Train), len(s.Test))
			}
			pos := 0
			for _, i := range s.Test {
				pos += int(y[i])
			}
			if pos != tt.wantTestPos {
				t.Errorf("test positives = %d, want %d", pos, tt.wantTestPos)
			}

			seen := make(map[int]bool)
			for _, i := range append(append([]int(nil), s.Train...), s.Test...) {
				if seen[i] {
					t.Fatalf("row %d appears twice", i)
				}
				seen[i] = true
			}
			if len(seen) != tt.n {
				t.Errorf("coverage %d, want %d", len(seen), tt.n)
			}
		})
	}
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	y := labels(50, 15)
	a, err := StratifiedSplit(y, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := StratifiedSplit(y, 0.2, 42)
	for i := range a.Test {
		if a.Test[i] != b.Test[i] {
			t.Fatal("same seed produced different splits")
		}
	}
	c, _ := StratifiedSplit(y, 0.2, 7)
	same := true
	for i := range a.Test {
		if a.Test[i] != c.Test[i] {
			same = false
		}
	}
	if same {
		t.Error("different seeds produced identical splits")
	}
}

func TestStratifiedSplitErrors(t *testing.T) {
	if _, err := StratifiedSplit([]float64{0, 0, 0, 1}, 0.5, 1); err == nil {
		t.Error("expected error for a class with a single member")
	}
	if _, err := StratifiedSplit([]float64{0, 1, 0, 1}, 1.5, 1); err == nil {
		t.Error("expected error for test_size out of range")
	}
	if _, err := StratifiedSplit(nil, 0.2, 1); err == nil {
		t.Error("expected error for empty labels")
	}
}

func TestTrainTestSplitKeepsRowsTogether(t *testing.T) {
	n := 30
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i)*10)
		if i%3 == 0 {
			y.Set(i, 0, 1)
		}
	}
	XTrain, XTest, yTrain, yTest, err := TrainTestSplit(X, y, 0.2, 42)
	if err != nil {
		t.Fatal(err)
	}
	if r, _ := XTest.Dims(); r != 6 {
		t.Errorf("test rows = %d, want 6", r)
	}
	check := func(Xp, yp *mat.Dense) {
		r, _ := Xp.Dims()
		for i := 0; i < r; i++ {
			orig := int(Xp.At(i, 0))
			if Xp.At(i, 1) != float64(orig)*10 {
				t.Errorf("row %d columns split apart", i)
			}
			want := 0.0
			if orig%3 == 0 {
				want = 1
			}
			if yp.At(i, 0) != want {
				t.Errorf("row %d label mismatch", i)
			}
		}
	}
	check(XTrain, yTrain)
	check(XTest, yTest)
}
