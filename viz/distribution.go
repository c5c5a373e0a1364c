package viz

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Series is a named sample.
type Series struct {
	Name   string
	Values []float64
}

// HistogramGrid draws one histogram per series in a grid of cols columns.
func HistogramGrid(path string, series []Series, bins, cols int) error {
	var plots []*plot.Plot
	for _, s := range series {
		p := plot.New()
		p.Title.Text = s.Name
		if len(s.Values) > 0 {
			h, err := plotter.NewHist(plotter.Values(s.Values), bins)
			if err != nil {
				return errors.Wrapf(err, "histogram of %s", s.Name)
			}
			h.FillColor = groupColor(0)
			p.Add(h)
		}
		plots = append(plots, p)
	}
	return saveGrid(plots, cols, path)
}

// BoxPlots draws one box per group on a shared axis.
func BoxPlots(path, title, valueLabel string, groups []Series) error {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = valueLabel
	names := make([]string, 0, len(groups))
	for i, g := range groups {
		if len(g.Values) == 0 {
			names = append(names, g.Name)
			continue
		}
		b, err := plotter.NewBoxPlot(vg.Points(40), float64(i), plotter.Values(g.Values))
		if err != nil {
			return errors.Wrapf(err, "box plot of %s", g.Name)
		}
		b.FillColor = groupColor(i)
		p.Add(b)
		names = append(names, g.Name)
	}
	p.NominalX(names...)
	return save(p, path, Width, Height)
}

// KDE is a one-dimensional Gaussian kernel density estimate.
type KDE struct {
	Sample    []float64
	Bandwidth float64
}

// ScottFactor is n^(-1/5).
func ScottFactor(n int) float64 {
	return math.Pow(float64(n), -0.2)
}

// NewKDE fits a KDE whose bandwidth is adjust × Scott's rule (sample std ×
// n^(-1/5)). It needs at least two distinct values.
func NewKDE(sample []float64, adjust float64) (*KDE, error) {
	if len(sample) < 2 {
		return nil, errors.NewValueError("viz.NewKDE", "need at least two observations")
	}
	sd := stat.StdDev(sample, nil)
	if sd == 0 || math.IsNaN(sd) {
		return nil, errors.NewValueError("viz.NewKDE", "sample has no spread")
	}
	return &KDE{
		Sample:    append([]float64(nil), sample...),
		Bandwidth: adjust * sd * ScottFactor(len(sample)),
	}, nil
}

// Density evaluates the estimate at x.
func (k *KDE) Density(x float64) float64 {
	var s float64
	for _, v := range k.Sample {
		z := (x - v) / k.Bandwidth
		s += math.Exp(-0.5 * z * z)
	}
	return s / (float64(len(k.Sample)) * k.Bandwidth * math.Sqrt(2*math.Pi))
}

// Curve evaluates the density at n points spanning [min, max] of the sample,
// so the curve stops at the observed data.
func (k *KDE) Curve(n int) plotter.XYs {
	lo, hi := floats.Min(k.Sample), floats.Max(k.Sample)
	xs := make([]float64, n)
	floats.Span(xs, lo, hi)
	pts := make(plotter.XYs, n)
	for i, x := range xs {
		pts[i] = plotter.XY{X: x, Y: k.Density(x)}
	}
	return pts
}

// FeatureGroups are the per-class samples of one feature.
type FeatureGroups struct {
	Feature string
	Groups  []Series
}

// KDEGrid draws one panel per feature with a density line per group.
// Features whose combined sample has at most one distinct value are skipped;
// a group with fewer than two distinct values draws nothing in its panel.
func KDEGrid(path string, features []FeatureGroups, adjust float64, cols int) error {
	var plots []*plot.Plot
	for _, f := range features {
		var all []float64
		for _, g := range f.Groups {
			all = append(all, g.Values...)
		}
		if distinct(all) <= 1 {
			continue
		}
		p := plot.New()
		p.Title.Text = f.Feature
		for gi, g := range f.Groups {
			if distinct(g.Values) <= 1 {
				continue
			}
			kde, err := NewKDE(g.Values, adjust)
			if err != nil {
				return errors.Wrapf(err, "density of %s", f.Feature)
			}
			line, err := plotter.NewLine(kde.Curve(200))
			if err != nil {
				return errors.Wrapf(err, "density of %s", f.Feature)
			}
			line.Color = groupColor(gi)
			line.Width = vg.Points(1.2)
			p.Add(line)
			p.Legend.Add(g.Name, line)
		}
		p.Legend.Top = true
		plots = append(plots, p)
	}
	if len(plots) == 0 {
		return errors.NewValueError("viz.KDEGrid", "no feature has more than one distinct value")
	}
	return saveGrid(plots, cols, path)
}

func distinct(v []float64) int {
	if len(v) == 0 {
		return 0
	}
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := 1
	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1] {
			n++
		}
	}
	return n
}
