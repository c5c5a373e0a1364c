package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMSE(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		yPred   *mat.VecDense
		want    float64
		wantErr bool
	}{
		{
			name:  "perfect prediction",
			yTrue: mat.NewVecDense(3, []float64{1, 2, 3}),
			yPred: mat.NewVecDense(3, []float64{1, 2, 3}),
			want:  0,
		},
		{
			name:  "constant offset",
			yTrue: mat.NewVecDense(4, []float64{0, 1, 0, 1}),
			yPred: mat.NewVecDense(4, []float64{0.5, 0.5, 0.5, 0.5}),
			want:  0.25,
		},
		{
			name:    "dimension mismatch",
			yTrue:   mat.NewVecDense(2, []float64{0, 1}),
			yPred:   mat.NewVecDense(1, []float64{0}),
			wantErr: true,
		},
		{
			name:    "nil input",
			yPred:   mat.NewVecDense(1, []float64{0}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MSE(tt.yTrue, tt.yPred)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MSE() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("MSE() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestR2Score(t *testing.T) {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})

	got, err := R2Score(yTrue, mat.NewVecDense(4, []float64{0, 0, 1, 1}))
	if err != nil || got != 1 {
		t.Errorf("perfect fit: R2 = %v, err = %v", got, err)
	}

	// 平均予測は R² = 0
	got, err = R2Score(yTrue, mat.NewVecDense(4, []float64{0.5, 0.5, 0.5, 0.5}))
	if err != nil || math.Abs(got) > 1e-12 {
		t.Errorf("mean prediction: R2 = %v, err = %v", got, err)
	}

	if _, err := R2Score(mat.NewVecDense(2, []float64{1, 1}), mat.NewVecDense(2, []float64{1, 0})); err == nil {
		t.Error("expected error for constant yTrue")
	}

	got, err = R2ScoreMatrix(mat.NewDense(4, 1, []float64{0, 0, 1, 1}), mat.NewDense(4, 1, []float64{0.1, 0.1, 0.9, 0.9}))
	if err != nil || math.Abs(got-0.96) > 1e-12 {
		t.Errorf("R2ScoreMatrix = %v, err = %v, want 0.96", got, err)
	}
}
