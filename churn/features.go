package churn

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/dataset"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/preprocessing"
)

// Features are the model-ready matrices of a train/test pair. Train and test
// share Names exactly, in the same order.
type Features struct {
	Names         []string
	XTrain, XTest *mat.Dense
	YTrain, YTest []float64
	TrainIDs      []string
	TestIDs       []string
	RegionEncoder *preprocessing.LabelEncoder
}

// AccountAge adds account_age_days = whole days from first_order_delivered
// to ref (floored) as the last column and drops the date column.
func AccountAge(t *dataset.Table, ref time.Time) (*dataset.Table, error) {
	c, ok := t.Column(ColFirstOrder)
	if !ok {
		return nil, errors.NewColumnError("AccountAge", ColFirstOrder)
	}
	if c.Kind != dataset.Time {
		return nil, errors.NewValidationError(ColFirstOrder, "column is not a date", c.Kind.String())
	}
	days := make([]float64, c.Len())
	for i := range days {
		if c.IsNull(i) {
			days[i] = math.NaN()
			continue
		}
		days[i] = math.Floor(ref.Sub(c.Times[i]).Hours() / 24)
	}
	return t.Drop(ColFirstOrder).WithColumn(dataset.NewNumeric(ColAccountAge, days))
}

// encodeOne applies the per-table steps: account age and drop-first dummies.
func encodeOne(t *dataset.Table, ref time.Time) (*dataset.Table, error) {
	t, err := AccountAge(t, ref)
	if err != nil {
		return nil, err
	}
	return preprocessing.GetDummies(t, OneHotFeatures, true)
}

// PrepareFeatures turns the train and test split tables into matrices. Test
// columns are reindexed to the train columns (missing indicators become zero,
// extra ones are dropped) and region_id is label-encoded with the train
// mapping, so a region seen only in test is an UnseenCategoryError.
func PrepareFeatures(train, test *dataset.Table, ref time.Time) (*Features, error) {
	required := []string{ColCourierID, ColChurn, ColFirstOrder, ColRegion, ColMovement, ColHiring}
	if err := train.Require("PrepareFeatures", required...); err != nil {
		return nil, err
	}
	if err := test.Require("PrepareFeatures", required...); err != nil {
		return nil, err
	}

	tr, err := encodeOne(train, ref)
	if err != nil {
		return nil, errors.Wrap(err, "encode train")
	}
	te, err := encodeOne(test, ref)
	if err != nil {
		return nil, errors.Wrap(err, "encode test")
	}
	if te, err = preprocessing.Reindex(te, tr.Columns()); err != nil {
		return nil, err
	}

	enc := preprocessing.NewLabelEncoder()
	region, _ := tr.Column(ColRegion)
	codes, err := enc.FitTransform(region)
	if err != nil {
		return nil, err
	}
	if tr, err = tr.WithColumn(codes); err != nil {
		return nil, err
	}
	region, _ = te.Column(ColRegion)
	if codes, err = enc.Transform(region); err != nil {
		return nil, err
	}
	if te, err = te.WithColumn(codes); err != nil {
		return nil, err
	}

	f := &Features{RegionEncoder: enc}
	ids, _ := tr.Column(ColCourierID)
	f.TrainIDs = ids.AsStrings().Strs
	ids, _ = te.Column(ColCourierID)
	f.TestIDs = ids.AsStrings().Strs
	if f.YTrain, err = labelValues(tr); err != nil {
		return nil, err
	}
	if f.YTest, err = labelValues(te); err != nil {
		return nil, err
	}

	tr = tr.Drop(ColCourierID, ColChurn)
	te = te.Drop(ColCourierID, ColChurn)
	f.Names = tr.Columns()
	if f.XTrain, err = modelMatrix(tr); err != nil {
		return nil, errors.Wrap(err, "train features")
	}
	if f.XTest, err = modelMatrix(te); err != nil {
		return nil, errors.Wrap(err, "test features")
	}

	log.GetLoggerWithName("features").Info("features prepared",
		log.FeaturesKey, len(f.Names),
		"features.train_rows", len(f.YTrain),
		"features.test_rows", len(f.YTest),
		"features.regions", len(enc.Classes))
	return f, nil
}

// modelMatrix requires every column to be numeric (or numeric text) and
// free of nulls.
func modelMatrix(t *dataset.Table) (*mat.Dense, error) {
	out := mat.NewDense(t.NumRows(), t.NumCols(), nil)
	for j, name := range t.Columns() {
		c, ok := t.Col(j).AsNumeric()
		if !ok {
			return nil, errors.NewValidationError(name, "column is not numeric", t.Col(j).Kind.String())
		}
		if n := c.NullCount(); n > 0 {
			return nil, errors.NewValidationError(name, "column has missing values", n)
		}
		out.SetCol(j, c.Nums)
	}
	return out, nil
}

// Scaled returns the features standardized with a scaler fit on train.
func (f *Features) Scaled() (XTrain, XTest *mat.Dense, err error) {
	s := preprocessing.NewStandardScalerDefault()
	tr, err := s.FitTransform(f.XTrain)
	if err != nil {
		return nil, nil, err
	}
	te, err := s.Transform(f.XTest)
	if err != nil {
		return nil, nil, err
	}
	return mat.DenseCopyOf(tr), mat.DenseCopyOf(te), nil
}
