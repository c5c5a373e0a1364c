package viz

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// CountBars draws one bar per label.
func CountBars(path, title string, labels []string, counts []float64) error {
	if len(labels) != len(counts) {
		return errors.NewDimensionError("viz.CountBars", len(labels), len(counts), 0)
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Count"

	bars, err := plotter.NewBarChart(plotter.Values(counts), vg.Points(30))
	if err != nil {
		return errors.Wrap(err, "bar chart")
	}
	bars.Color = groupColor(0)
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(labels...)
	return save(p, path, Width, Height)
}

// GroupedBars draws counts[g][c] as bars grouped by category c, one colour
// per group g (hue), with a legend.
func GroupedBars(path, title string, categories, groups []string, counts [][]float64) error {
	if len(groups) != len(counts) {
		return errors.NewDimensionError("viz.GroupedBars", len(groups), len(counts), 0)
	}
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "Count"
	p.Legend.Top = true

	width := vg.Points(max(4, 40/float64(max(1, len(groups)))))
	for g, row := range counts {
		if len(row) != len(categories) {
			return errors.NewDimensionError("viz.GroupedBars", len(categories), len(row), 1)
		}
		bars, err := plotter.NewBarChart(plotter.Values(row), width)
		if err != nil {
			return errors.Wrap(err, "bar chart")
		}
		bars.Color = groupColor(g)
		bars.LineStyle.Width = vg.Length(0)
		bars.Offset = vg.Length(float64(g)-float64(len(groups)-1)/2) * width
		p.Add(bars)
		p.Legend.Add(groups[g], bars)
	}
	p.NominalX(categories...)
	w := Width
	if len(categories) > 12 {
		w = vg.Length(len(categories)) * vg.Points(45)
	}
	return save(p, path, w, Height)
}
