package report

import (
	"io"
	"math"
	"strconv"

	"github.com/montanaflynn/stats"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Description is the describe() row of one numeric feature.
type Description struct {
	Feature                 string
	Count                   int
	Mean, Std               float64
	Min, Q25, Q50, Q75, Max float64
}

// Describe summarises one sample, ignoring NaN. Std is the sample standard
// deviation; a sample with fewer than two values has Std NaN and an empty one
// has every statistic NaN.
func Describe(feature string, values []float64) (Description, error) {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			data = append(data, v)
		}
	}
	d := Description{Feature: feature, Count: len(data)}
	nan := math.NaN()
	if len(data) == 0 {
		d.Mean, d.Std, d.Min, d.Q25, d.Q50, d.Q75, d.Max = nan, nan, nan, nan, nan, nan, nan
		return d, nil
	}
	var err error
	if d.Mean, err = stats.Mean(data); err != nil {
		return d, errors.Wrapf(err, "mean of %s", feature)
	}
	d.Std = nan
	if len(data) > 1 {
		if d.Std, err = stats.StandardDeviationSample(data); err != nil {
			return d, errors.Wrapf(err, "std of %s", feature)
		}
	}
	if d.Min, err = stats.Min(data); err != nil {
		return d, errors.Wrapf(err, "min of %s", feature)
	}
	if d.Max, err = stats.Max(data); err != nil {
		return d, errors.Wrapf(err, "max of %s", feature)
	}
	if d.Q50, err = stats.Median(data); err != nil {
		return d, errors.Wrapf(err, "median of %s", feature)
	}
	if len(data) == 1 {
		d.Q25, d.Q75 = data[0], data[0]
		return d, nil
	}
	if d.Q25, err = stats.Percentile(data, 25); err != nil {
		return d, errors.Wrapf(err, "25%% of %s", feature)
	}
	if d.Q75, err = stats.Percentile(data, 75); err != nil {
		return d, errors.Wrapf(err, "75%% of %s", feature)
	}
	return d, nil
}

// WriteDescribe writes descriptions as a describe() table, one row per feature.
func WriteDescribe(w io.Writer, ds []Description) {
	rows := make([][]string, len(ds))
	g := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	for i, d := range ds {
		rows[i] = []string{d.Feature, strconv.Itoa(d.Count), g(d.Mean), g(d.Std), g(d.Min), g(d.Q25), g(d.Q50), g(d.Q75), g(d.Max)}
	}
	Table(w, []string{"feature", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}, rows)
}
