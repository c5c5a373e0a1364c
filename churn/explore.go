package churn

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/churnlab/dataset"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/report"
	"github.com/YuminosukeSato/churnlab/viz"
)

// Summary is what the exploratory stage computed besides its figures.
type Summary struct {
	Rows         int
	ChurnCounts  [2]int
	Descriptions []report.Description
	Correlation  *mat.Dense
	Figures      []string
}

// Explore prints the schema, null counts, churn distribution, category counts
// and describe() table to w, and writes the figures into dir. It never
// modifies t.
func Explore(ctx context.Context, t *dataset.Table, w io.Writer, dir string) (*Summary, error) {
	logger := log.GetLoggerWithName("eda")
	labels, err := labelValues(t)
	if err != nil {
		return nil, err
	}
	s := &Summary{Rows: t.NumRows()}
	figure := func(name string) string {
		p := filepath.Join(dir, name)
		s.Figures = append(s.Figures, p)
		return p
	}

	fmt.Fprintln(w, "Dataset Overview:")
	schema := make([][]string, t.NumCols())
	nulls := make([][]string, t.NumCols())
	for j, name := range t.Columns() {
		c := t.Col(j)
		schema[j] = []string{name, c.Kind.String(), strconv.Itoa(c.Len() - c.NullCount())}
		nulls[j] = []string{name, strconv.Itoa(c.NullCount())}
	}
	report.Table(w, []string{"Column", "Dtype", "Non-Null Count"}, schema)
	fmt.Fprintln(w, "\nMissing Values:")
	report.Table(w, []string{"Column", "Nulls"}, nulls)

	for _, v := range labels {
		if v == 1 {
			s.ChurnCounts[1]++
		} else {
			s.ChurnCounts[0]++
		}
	}
	fmt.Fprintln(w, "\nChurn Distribution:")
	report.Counts(w, ColChurn, []string{"0", "1"}, []string{"count"}, [][]int{s.ChurnCounts[:]})
	if err := viz.CountBars(figure("churn_distribution.png"), "Churn Flag Distribution (0 = Active, 1 = Churn)",
		[]string{"0", "1"}, []float64{float64(s.ChurnCounts[0]), float64(s.ChurnCounts[1])}); err != nil {
		return nil, err
	}

	for _, name := range CategoricalFeatures {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, ok := t.Column(name)
		if !ok {
			logger.Warn("categorical column absent", "eda.column", name)
			continue
		}
		cats := c.Categories()
		pos := make(map[string]int, len(cats))
		for i, v := range cats {
			pos[v] = i
		}
		counts := [][]int{make([]int, len(cats)), make([]int, len(cats))}
		fcounts := [][]float64{make([]float64, len(cats)), make([]float64, len(cats))}
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			g := int(labels[i])
			counts[g][pos[c.Text(i)]]++
			fcounts[g][pos[c.Text(i)]]++
		}
		fmt.Fprintf(w, "\n%s by churn:\n", name)
		report.Counts(w, name, cats, []string{"churn=0", "churn=1"}, counts)
		if err := viz.GroupedBars(figure(name+"_by_churn.png"), "Distribution of "+name+" by Churn",
			cats, []string{"0", "1"}, fcounts); err != nil {
			return nil, err
		}
	}

	numeric := presentNumeric(t)
	cols := make([][]float64, len(numeric))
	series := make([]viz.Series, len(numeric))
	for j, name := range numeric {
		cols[j] = numericValues(t, name)
		series[j] = viz.Series{Name: name, Values: dropNaN(cols[j])}
		d, err := report.Describe(name, cols[j])
		if err != nil {
			return nil, err
		}
		s.Descriptions = append(s.Descriptions, d)
	}
	fmt.Fprintln(w, "\nSummary Statistics of Numerical Features:")
	report.WriteDescribe(w, s.Descriptions)

	if len(numeric) > 0 {
		if err := viz.HistogramGrid(figure("numeric_histograms.png"), series, 30, 6); err != nil {
			return nil, err
		}
		names := append(append([]string(nil), numeric...), ColChurn)
		s.Correlation = correlation(append(cols, labels))
		if err := viz.Heatmap(figure("correlation_matrix.png"), "Feature Correlation Matrix",
			names, names, s.Correlation, -1, 1, "%.2f"); err != nil {
			return nil, err
		}
	}

	for _, name := range WeekdayFeatures {
		c, ok := t.Column(name)
		if !ok {
			logger.Warn("weekday column absent", "eda.column", name)
			continue
		}
		num, ok := c.AsNumeric()
		if !ok {
			return nil, errors.NewValidationError(name, "column is not numeric", c.Kind.String())
		}
		groups := []viz.Series{{Name: "0"}, {Name: "1"}}
		for i := 0; i < num.Len(); i++ {
			if !num.IsNull(i) {
				g := int(labels[i])
				groups[g].Values = append(groups[g].Values, num.Nums[i])
			}
		}
		if err := viz.BoxPlots(figure(name+"_vs_churn.png"), name+" vs Churn", name, groups); err != nil {
			return nil, err
		}
	}

	var kde []viz.FeatureGroups
	for j, name := range numeric {
		fg := viz.FeatureGroups{Feature: name, Groups: []viz.Series{{Name: "Churn = 0"}, {Name: "Churn = 1"}}}
		for i, v := range cols[j] {
			if v > 0 {
				g := int(labels[i])
				fg.Groups[g].Values = append(fg.Groups[g].Values, v)
			}
		}
		kde = append(kde, fg)
	}
	if len(kde) > 0 {
		err := viz.KDEGrid(figure("feature_distributions_positive_only.png"), kde, 0.5, 4)
		var ve *errors.ValueError
		if errors.As(err, &ve) {
			s.Figures = s.Figures[:len(s.Figures)-1]
			logger.Warn("no feature has enough positive values for a density plot")
		} else if err != nil {
			return nil, err
		}
	}

	logger.Info("exploration finished",
		log.RowsKey, s.Rows,
		log.PositiveKey, float64(s.ChurnCounts[1])/float64(max(s.Rows, 1)),
		"eda.figures", len(s.Figures))
	return s, nil
}

// labelValues returns churn_flag as 0/1 values.
func labelValues(t *dataset.Table) ([]float64, error) {
	c, ok := t.Column(ColChurn)
	if !ok {
		return nil, errors.NewColumnError("labels", ColChurn)
	}
	num, ok := c.AsNumeric()
	if !ok {
		return nil, errors.NewValidationError(ColChurn, "label is not numeric", c.Kind.String())
	}
	for i, v := range num.Nums {
		if num.IsNull(i) || (v != 0 && v != 1) {
			return nil, errors.NewValueError("labels", fmt.Sprintf("%s must be 0 or 1, row %d holds %q", ColChurn, i, c.Text(i)))
		}
	}
	return num.Nums, nil
}

func presentNumeric(t *dataset.Table) []string {
	var out []string
	for _, name := range NumericFeatures {
		if c, ok := t.Column(name); ok && c.Kind == dataset.Numeric {
			out = append(out, name)
		}
	}
	return out
}

// numericValues returns a numeric column with NaN for nulls.
func numericValues(t *dataset.Table, name string) []float64 {
	c, _ := t.Column(name)
	out := make([]float64, c.Len())
	for i := range out {
		if c.IsNull(i) {
			out[i] = math.NaN()
		} else {
			out[i] = c.Nums[i]
		}
	}
	return out
}

func dropNaN(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// correlation is the pairwise Pearson matrix over rows complete for both
// columns; constant pairs give NaN.
func correlation(cols [][]float64) *mat.Dense {
	k := len(cols)
	out := mat.NewDense(k, k, nil)
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			var x, y []float64
			for i := range cols[a] {
				if !math.IsNaN(cols[a][i]) && !math.IsNaN(cols[b][i]) {
					x = append(x, cols[a][i])
					y = append(y, cols[b][i])
				}
			}
			r := math.NaN()
			if len(x) > 1 {
				r = stat.Correlation(x, y, nil)
			}
			if a == b && !math.IsNaN(r) {
				r = 1
			}
			out.Set(a, b, r)
			out.Set(b, a, r)
		}
	}
	return out
}
