package preprocessing

import (
	"math"
	"reflect"
	"testing"

	"github.com/YuminosukeSato/churnlab/dataset"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

func movementTable() *dataset.Table {
	return dataset.MustNew(
		dataset.NewNumeric("courier_id", []float64{1, 2, 3, 4}),
		dataset.NewStrings("m", []string{"b", "a", "", "c"}, []bool{true, true, false, true}),
		dataset.NewNumeric("age", []float64{30, 41, 25, 38}),
	)
}

func TestGetDummies(t *testing.T) {
	tests := []struct {
		name      string
		dropFirst bool
		wantCols  []string
		want      map[string][]float64
	}{
		{
			name:      "drop first",
			dropFirst: true,
			wantCols:  []string{"courier_id", "age", "m_b", "m_c"},
			want: map[string][]float64{
				"m_b": {1, 0, 0, 0},
				"m_c": {0, 0, 0, 1},
			},
		},
		{
			name:      "keep every value",
			dropFirst: false,
			wantCols:  []string{"courier_id", "age", "m_a", "m_b", "m_c"},
			want: map[string][]float64{
				"m_a": {0, 1, 0, 0},
				"m_b": {1, 0, 0, 0},
				"m_c": {0, 0, 0, 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := GetDummies(movementTable(), []string{"m"}, tt.dropFirst)
			if err != nil {
				t.Fatalf("GetDummies() error = %v", err)
			}
			if got := out.Columns(); !reflect.DeepEqual(got, tt.wantCols) {
				t.Errorf("columns = %v, want %v", got, tt.wantCols)
			}
			for name, want := range tt.want {
				c, ok := out.Column(name)
				if !ok {
					t.Fatalf("missing indicator %s", name)
				}
				if !reflect.DeepEqual(c.Nums, want) {
					t.Errorf("%s = %v, want %v", name, c.Nums, want)
				}
			}
		})
	}
}

func TestGetDummiesNumericCategoriesSortNumerically(t *testing.T) {
	tb := dataset.MustNew(dataset.NewNumeric("region_id", []float64{10, 2, 2, 10}))
	out, err := GetDummies(tb, []string{"region_id"}, true)
	if err != nil {
		t.Fatalf("GetDummies() error = %v", err)
	}
	if got, want := out.Columns(), []string{"region_id_10"}; !reflect.DeepEqual(got, want) {
		t.Errorf("columns = %v, want %v", got, want)
	}
}

func TestGetDummiesMissingColumn(t *testing.T) {
	_, err := GetDummies(movementTable(), []string{"hiring_channel_name"}, true)
	var colErr *errors.ColumnError
	if !errors.As(err, &colErr) {
		t.Errorf("GetDummies() error = %v, want ColumnError", err)
	}
}

func TestReindex(t *testing.T) {
	test := dataset.MustNew(
		dataset.NewNumeric("age", []float64{30, 41}),
		dataset.NewNumeric("m_b", []float64{1, 0}),
		dataset.NewNumeric("m_z", []float64{0, 1}),
	)
	trainCols := []string{"m_c", "age", "m_b"}

	out, err := Reindex(test, trainCols)
	if err != nil {
		t.Fatalf("Reindex() error = %v", err)
	}
	if got := out.Columns(); !reflect.DeepEqual(got, trainCols) {
		t.Errorf("columns = %v, want %v", got, trainCols)
	}
	if out.Has("m_z") {
		t.Error("column only present in test should be dropped")
	}
	want := map[string][]float64{
		"m_c": {0, 0},
		"age": {30, 41},
		"m_b": {1, 0},
	}
	for name, w := range want {
		c, _ := out.Column(name)
		if !reflect.DeepEqual(c.Nums, w) {
			t.Errorf("%s = %v, want %v", name, c.Nums, w)
		}
	}
}

func TestLabelEncoder(t *testing.T) {
	train := dataset.NewNumeric("region_id", []float64{3, 1, 2, 1})
	enc := NewLabelEncoder()
	codes, err := enc.FitTransform(train)
	if err != nil {
		t.Fatalf("FitTransform() error = %v", err)
	}
	if want := []float64{2, 0, 1, 0}; !reflect.DeepEqual(codes.Nums, want) {
		t.Errorf("codes = %v, want %v", codes.Nums, want)
	}
	if want := []string{"1", "2", "3"}; !reflect.DeepEqual(enc.Classes, want) {
		t.Errorf("Classes = %v, want %v", enc.Classes, want)
	}

	labels, err := enc.InverseTransform([]float64{0, 2})
	if err != nil || !reflect.DeepEqual(labels, []string{"1", "3"}) {
		t.Errorf("InverseTransform() = %v, %v", labels, err)
	}
	if _, err := enc.InverseTransform([]float64{math.NaN()}); err == nil {
		t.Error("InverseTransform(NaN) should fail")
	}

	_, err = enc.Transform(dataset.NewNumeric("region_id", []float64{1, 5, 4}))
	var unseen *errors.UnseenCategoryError
	if !errors.As(err, &unseen) {
		t.Errorf("Transform() error = %v, want UnseenCategoryError", err)
	}
}

func TestLabelEncoderNotFitted(t *testing.T) {
	_, err := NewLabelEncoder().Transform(dataset.NewNumeric("region_id", []float64{1}))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("Transform() error = %v, want NotFittedError", err)
	}
}
