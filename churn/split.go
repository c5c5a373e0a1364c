package churn

import (
	"github.com/YuminosukeSato/churnlab/dataset"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/sklearn/model_selection"
)

// Split partitions t into stratified train and test tables. Both keep every
// column of t, including courier_id and churn_flag.
func Split(t *dataset.Table, testSize float64, seed int64) (train, test *dataset.Table, err error) {
	y, err := labelValues(t)
	if err != nil {
		return nil, nil, err
	}
	s, err := model_selection.StratifiedSplit(y, testSize, seed)
	if err != nil {
		return nil, nil, errors.Wrap(err, "stratified split")
	}
	train, test = t.Take(s.Train), t.Take(s.Test)

	log.GetLoggerWithName("split").Info("table split",
		"split.train_rows", train.NumRows(),
		"split.test_rows", test.NumRows(),
		log.PositiveKey, positiveRate(y, s.Test),
		log.RandomSeedKey, seed)
	return train, test, nil
}

func positiveRate(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var pos float64
	for _, i := range idx {
		pos += y[i]
	}
	return pos / float64(len(idx))
}
