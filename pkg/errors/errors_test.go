package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "churnlab: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "churnlab: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}
			// スタックトレースの存在確認
			if !strings.Contains(fmt.Sprintf("%+v", err), "errors_test.go") {
				t.Error("expected stack trace to contain test file name")
			}
			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("error should be castable to *ModelError")
			}
		})
	}
}

func TestStructuredErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "dimension",
			err:  NewDimensionError("Predict", 10, 12, 1),
			want: "churnlab: Predict: dimension mismatch on axis 1 (features). Expected 10, got 12",
		},
		{
			name: "not fitted",
			err:  NewNotFittedError("PLSRegression", "Transform"),
			want: "churnlab: PLSRegression: this model is not fitted yet. Call Fit() before using Transform()",
		},
		{
			name: "column",
			err:  NewColumnError("Clean", "age", "hiring_channel_name"),
			want: "churnlab: Clean: missing column(s) age, hiring_channel_name",
		},
		{
			name: "unseen category",
			err:  NewUnseenCategoryError("region_id", []string{"9", "7"}),
			want: "churnlab: column 'region_id' contains previously unseen labels: [7, 9]",
		},
		{
			name: "validation",
			err:  NewValidationError("n_components", "must be positive", 0),
			want: "churnlab: validation failed for parameter 'n_components': must be positive (got: 0)",
		},
		{
			name: "value",
			err:  NewValueError("RepairDates", "offset is not numeric"),
			want: "churnlab: RepairDates: offset is not numeric",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestUnseenCategoryErrorAs(t *testing.T) {
	err := Wrap(NewUnseenCategoryError("region_id", []string{"42"}), "bench preprocessing")
	var unseen *UnseenCategoryError
	if !As(err, &unseen) {
		t.Fatal("wrapped error should still be an *UnseenCategoryError")
	}
	if unseen.Column != "region_id" {
		t.Errorf("Column = %q, want region_id", unseen.Column)
	}
}

func TestWarnUsesHandler(t *testing.T) {
	var got []error
	SetZerologWarnFunc(nil)
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(w error) {})

	Warn(NewConvergenceWarning("lbfgs", 500, ""))
	Warn(NewUndefinedMetricWarning("precision", "no predicted samples", 0))

	if len(got) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(got))
	}
	want := "lbfgs failed to converge after 500 iterations. Consider increasing max_iter."
	if got[0].Error() != want {
		t.Errorf("Error() = %q, want %q", got[0].Error(), want)
	}
}

func TestWrapfAndIs(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d rows", "Split", 10)
	if !Is(wrapped, ErrEmptyData) {
		t.Error("expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in Split: expected 10 rows") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestCheckMatrix(t *testing.T) {
	m := fakeMatrix{{1, 2}, {3, nan()}}
	if err := CheckMatrix("PLS.Fit", m, 2, 2, 0); err == nil {
		t.Fatal("expected instability error")
	}
	ok := fakeMatrix{{1, 2}, {3, 4}}
	if err := CheckMatrix("PLS.Fit", ok, 2, 2, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSigmoidStable(t *testing.T) {
	if got := Sigmoid(-1000); got != 0 {
		t.Errorf("Sigmoid(-1000) = %v, want 0", got)
	}
	if got := Sigmoid(1000); got != 1 {
		t.Errorf("Sigmoid(1000) = %v, want 1", got)
	}
	if got := Log1pExp(1000); got != 1000 {
		t.Errorf("Log1pExp(1000) = %v, want 1000", got)
	}
}

type fakeMatrix [][]float64

func (m fakeMatrix) At(i, j int) float64 { return m[i][j] }

func nan() float64 {
	var zero float64
	return zero / zero
}
