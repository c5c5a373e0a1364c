package viz

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/churnlab/metrics"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Curve is one model's ROC curve.
type Curve struct {
	Label  string
	AUC    float64
	Points []metrics.ROCPoint
}

// ROCCurves overlays curves with the chance diagonal.
func ROCCurves(path, title string, curves []Curve) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05
	p.Legend.Left = true
	p.Legend.Top = false
	p.Add(plotter.NewGrid())

	for i, c := range curves {
		xys := make(plotter.XYs, len(c.Points))
		for k, pt := range c.Points {
			xys[k] = plotter.XY{X: pt.FPR, Y: pt.TPR}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return errors.Wrapf(err, "roc of %s", c.Label)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%s (AUC = %.2f)", c.Label, c.AUC), line)
	}

	diag := plotter.NewFunction(func(x float64) float64 { return x })
	diag.Color = color.Gray{Y: 128}
	diag.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(diag)
	p.Legend.Add("Chance", diag)
	p.Legend.ThumbnailWidth = vg.Points(20)
	p.Legend.TextStyle.Font.Size = vg.Points(9)
	p.Legend.Padding = vg.Points(2)
	return save(p, path, Width, Height)
}
