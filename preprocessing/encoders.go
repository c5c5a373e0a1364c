package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/churnlab/dataset"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// GetDummies one-hot encodes the given columns of t. Each encoded column is
// removed and one indicator column named "<col>_<value>" per sorted distinct
// non-null value is appended at the end, in the order of columns. With
// dropFirst the indicator of the first value is omitted. A null cell encodes
// as all zeros.
//
// Categories are learned from t itself, so train and test tables may end up
// with different indicator sets; align them with Reindex.
func GetDummies(t *dataset.Table, columns []string, dropFirst bool) (*dataset.Table, error) {
	if err := t.Require("GetDummies", columns...); err != nil {
		return nil, err
	}
	out := t.Drop(columns...)
	for _, name := range columns {
		c, _ := t.Column(name)
		if c.Kind == dataset.Time {
			return nil, errors.NewValidationError(name, "cannot one-hot encode a datetime column", c.Kind.String())
		}
		cats := c.Categories()
		if dropFirst && len(cats) > 0 {
			cats = cats[1:]
		}
		for _, cat := range cats {
			ind := make([]float64, c.Len())
			for i := range ind {
				if c.Valid[i] && c.Text(i) == cat {
					ind[i] = 1
				}
			}
			var err error
			out, err = out.WithColumn(dataset.NewNumeric(name+"_"+cat, ind))
			if err != nil {
				return nil, errors.Wrapf(err, "add indicator for %s", name)
			}
		}
	}
	return out, nil
}

// Reindex conforms t to exactly the given column names and order. Columns not
// in t are created as numeric zeros; columns of t not listed are dropped.
func Reindex(t *dataset.Table, columns []string) (*dataset.Table, error) {
	cols := make([]*dataset.Column, len(columns))
	for j, name := range columns {
		if c, ok := t.Column(name); ok {
			cols[j] = c
			continue
		}
		cols[j] = dataset.NewNumeric(name, make([]float64, t.NumRows()))
	}
	out, err := dataset.New(cols...)
	if err != nil {
		return nil, errors.Wrap(err, "reindex")
	}
	return out, nil
}

// LabelEncoder maps category labels to integer codes 0..k-1 in sorted order.
// Labels not seen during Fit are rejected with an UnseenCategoryError.
type LabelEncoder struct {
	// Classes は学習したカテゴリ（ソート済み）
	Classes []string

	index map[string]int
}

// NewLabelEncoder creates an unfitted encoder.
func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{}
}

// Fit learns the sorted distinct values of a column. Nulls are not allowed.
func (e *LabelEncoder) Fit(c *dataset.Column) error {
	if c.NullCount() > 0 {
		return errors.NewValueError("LabelEncoder.Fit", fmt.Sprintf("column %q contains %d missing values", c.Name, c.NullCount()))
	}
	e.Classes = c.Categories()
	e.index = make(map[string]int, len(e.Classes))
	for i, cls := range e.Classes {
		e.index[cls] = i
	}
	return nil
}

// Transform encodes a column into a numeric column of the same name.
func (e *LabelEncoder) Transform(c *dataset.Column) (*dataset.Column, error) {
	if e.index == nil {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	codes := make([]float64, c.Len())
	var unseen []string
	seen := make(map[string]bool)
	for i := range codes {
		if !c.Valid[i] {
			return nil, errors.NewValueError("LabelEncoder.Transform", fmt.Sprintf("column %q has a missing value at row %d", c.Name, i))
		}
		key := c.Text(i)
		code, ok := e.index[key]
		if !ok {
			if !seen[key] {
				seen[key] = true
				unseen = append(unseen, key)
			}
			codes[i] = math.NaN()
			continue
		}
		codes[i] = float64(code)
	}
	if len(unseen) > 0 {
		sort.Strings(unseen)
		return nil, errors.NewUnseenCategoryError(c.Name, unseen)
	}
	return dataset.NewNumeric(c.Name, codes), nil
}

// FitTransform fits on c and encodes it.
func (e *LabelEncoder) FitTransform(c *dataset.Column) (*dataset.Column, error) {
	if err := e.Fit(c); err != nil {
		return nil, err
	}
	return e.Transform(c)
}

// InverseTransform maps codes back to labels.
func (e *LabelEncoder) InverseTransform(codes []float64) ([]string, error) {
	out := make([]string, len(codes))
	for i, v := range codes {
		k := int(v)
		if float64(k) != v || k < 0 || k >= len(e.Classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", fmt.Sprintf("code %v out of range", v))
		}
		out[i] = e.Classes[k]
	}
	return out, nil
}
