package viz

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// SHAPSummary draws the beeswarm-style summary: one row per feature ordered by
// mean |SHAP| (largest on top), each sample a dot at its SHAP value coloured
// from blue (low feature value) to red (high). At most maxDisplay features are shown.
func SHAPSummary(path string, shap, features mat.Matrix, names []string, maxDisplay int) error {
	n, p := shap.Dims()
	fn, fp := features.Dims()
	if fn != n || fp != p || len(names) != p {
		return errors.NewDimensionError("viz.SHAPSummary", p, fp, 1)
	}

	type ranked struct {
		j    int
		mean float64
	}
	order := make([]ranked, p)
	for j := 0; j < p; j++ {
		var s float64
		for i := 0; i < n; i++ {
			s += math.Abs(shap.At(i, j))
		}
		order[j] = ranked{j, s / float64(max(n, 1))}
	}
	// 同値は列順
	sort.SliceStable(order, func(a, b int) bool { return order[a].mean > order[b].mean })
	if maxDisplay > 0 && len(order) > maxDisplay {
		order = order[:maxDisplay]
	}

	plt := plot.New()
	plt.Title.Text = "SHAP summary"
	plt.X.Label.Text = "SHAP value (impact on model output)"
	plt.Add(plotter.NewGrid())

	cm := moreland.SmoothBlueRed()
	cm.SetMin(0)
	cm.SetMax(1)
	jitter := rand.New(rand.NewSource(0))
	labels := make([]string, len(order))
	for row, r := range order {
		y := float64(len(order) - 1 - row)
		labels[len(order)-1-row] = names[r.j]

		col := make([]float64, n)
		for i := range col {
			col[i] = features.At(i, r.j)
		}
		lo, hi := floats.Min(col), floats.Max(col)
		xys := make(plotter.XYs, n)
		shade := make([]float64, n)
		for i := 0; i < n; i++ {
			xys[i] = plotter.XY{X: shap.At(i, r.j), Y: y + (jitter.Float64()-0.5)*0.4}
			if hi > lo {
				shade[i] = (col[i] - lo) / (hi - lo)
			} else {
				shade[i] = 0.5
			}
		}
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return errors.Wrapf(err, "summary row %s", names[r.j])
		}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			c, err := cm.At(shade[i])
			if err != nil {
				c = groupColor(0)
			}
			return draw.GlyphStyle{Color: c, Radius: vg.Points(2), Shape: draw.CircleGlyph{}}
		}
		plt.Add(sc)
	}
	plt.NominalY(labels...)

	h := vg.Length(max(len(order), 4)) * vg.Points(22)
	return save(plt, path, Width, h+vg.Inch)
}
