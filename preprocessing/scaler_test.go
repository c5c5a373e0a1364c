package preprocessing

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestStandardScaler(t *testing.T) {
	tests := []struct {
		name      string
		X         *mat.Dense
		wantMean  []float64
		wantScale []float64
	}{
		{
			name:      "population standard deviation",
			X:         mat.NewDense(4, 1, []float64{1, 2, 3, 4}),
			wantMean:  []float64{2.5},
			wantScale: []float64{math.Sqrt(1.25)},
		},
		{
			name:      "constant column gets unit scale",
			X:         mat.NewDense(3, 2, []float64{7, 0, 7, 2, 7, 4}),
			wantMean:  []float64{7, 2},
			wantScale: []float64{1, math.Sqrt(8.0 / 3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStandardScalerDefault()
			if err := s.Fit(tt.X); err != nil {
				t.Fatalf("Fit() error = %v", err)
			}
			for j := range tt.wantMean {
				if math.Abs(s.Mean[j]-tt.wantMean[j]) > 1e-12 {
					t.Errorf("Mean[%d] = %v, want %v", j, s.Mean[j], tt.wantMean[j])
				}
				if math.Abs(s.Scale[j]-tt.wantScale[j]) > 1e-12 {
					t.Errorf("Scale[%d] = %v, want %v", j, s.Scale[j], tt.wantScale[j])
				}
			}
		})
	}
}

func TestStandardScalerTransform(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{7, 0, 7, 2, 7, 4})
	s := NewStandardScalerDefault()
	got, err := s.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	r, _ := got.Dims()
	for i := 0; i < r; i++ {
		if v := got.At(i, 0); v != 0 {
			t.Errorf("constant column row %d = %v, want 0", i, v)
		}
	}
	// 母標準偏差なので変換後の分散は1
	var sum, sq float64
	for i := 0; i < r; i++ {
		v := got.At(i, 1)
		sum += v
		sq += v * v
	}
	if math.Abs(sum) > 1e-12 || math.Abs(sq/float64(r)-1) > 1e-12 {
		t.Errorf("scaled column mean %v, variance %v; want 0 and 1", sum/float64(r), sq/float64(r))
	}

	back, err := s.InverseTransform(got)
	if err != nil {
		t.Fatalf("InverseTransform() error = %v", err)
	}
	if !mat.EqualApprox(back, X, 1e-12) {
		t.Errorf("InverseTransform() = %v, want %v", mat.Formatted(back), mat.Formatted(X))
	}
}

func TestStandardScalerErrors(t *testing.T) {
	s := NewStandardScalerDefault()
	if _, err := s.Transform(mat.NewDense(1, 1, []float64{1})); err == nil {
		t.Error("Transform() before Fit should fail")
	}
	if err := s.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if _, err := s.Transform(mat.NewDense(1, 3, []float64{1, 2, 3})); err == nil {
		t.Error("Transform() with wrong width should fail")
	}
}
