package viz

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// matrixGrid adapts a matrix to plotter.GridXYZ with row 0 drawn on top.
type matrixGrid struct {
	m *mat.Dense
}

func (g matrixGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}
func (g matrixGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}
func (g matrixGrid) X(c int) float64 { return float64(c) }
func (g matrixGrid) Y(r int) float64 { return float64(r) }

// Heatmap draws m with a diverging blue-red palette on [lo, hi], annotating
// each cell with format (e.g. "%.2f"); an empty format draws no labels.
func Heatmap(path, title string, xNames, yNames []string, m *mat.Dense, lo, hi float64, format string) error {
	rows, cols := m.Dims()
	if len(xNames) != cols || len(yNames) != rows {
		return errors.NewDimensionError("viz.Heatmap", rows, len(yNames), 0)
	}
	p := plot.New()
	p.Title.Text = title

	cm := moreland.SmoothBlueRed()
	hm := plotter.NewHeatMap(matrixGrid{m}, cm.Palette(255))
	hm.Min, hm.Max = lo, hi
	p.Add(hm)

	if format != "" {
		var xys plotter.XYs
		var labels []string
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				xys = append(xys, plotter.XY{X: float64(c), Y: float64(rows - 1 - r)})
				labels = append(labels, fmt.Sprintf(format, m.At(r, c)))
			}
		}
		l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
		if err != nil {
			return errors.Wrap(err, "heatmap labels")
		}
		for i := range l.TextStyle {
			l.TextStyle[i].XAlign = -0.5
			l.TextStyle[i].YAlign = -0.5
			if cols > 12 {
				l.TextStyle[i].Font.Size = vg.Points(5)
			}
		}
		p.Add(l)
	}

	reversed := make([]string, rows)
	for i, n := range yNames {
		reversed[rows-1-i] = n
	}
	p.NominalX(xNames...)
	p.NominalY(reversed...)
	p.X.Tick.Label.Rotation = 1.2
	p.X.Tick.Label.XAlign = -1

	side := Height
	if cols > 10 {
		side = vg.Length(cols) * vg.Points(28)
	}
	return save(p, path, side+vg.Inch, side)
}

// Confusion draws a row-normalized confusion matrix.
func Confusion(path, title string, labels []string, m *mat.Dense) error {
	return Heatmap(path, title, labels, labels, m, 0, 1, "%.2f")
}
