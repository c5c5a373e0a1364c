// Package viz renders the pipeline's figures as PNG files with gonum/plot.
// Every function takes the output path first and creates its directory.
package viz

import (
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
)

// Figure sizes.
var (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
	// TileSize is the side of one panel in a grid figure.
	TileSize = 3 * vg.Inch
)

// classColors are used for the "0" and "1" churn groups.
var classColors = []color.Color{
	color.RGBA{R: 31, G: 119, B: 180, A: 255},
	color.RGBA{R: 255, G: 127, B: 14, A: 255},
}

func groupColor(i int) color.Color {
	if i < len(classColors) {
		return classColors[i]
	}
	return plotutil.Color(i)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	return nil
}

// save writes a single plot.
func save(p *plot.Plot, path string, w, h vg.Length) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	log.GetLoggerWithName("viz").Debug("figure saved", log.PathKey, path)
	return nil
}

// saveGrid lays plots out row-major in a grid with cols columns.
func saveGrid(plots []*plot.Plot, cols int, path string) error {
	if len(plots) == 0 {
		return errors.NewValueError("viz.saveGrid", "no panels to draw")
	}
	cols = max(1, min(cols, len(plots)))
	rows := (len(plots) + cols - 1) / cols

	grid := make([][]*plot.Plot, rows)
	for r := range grid {
		grid[r] = make([]*plot.Plot, cols)
		for c := range grid[r] {
			k := r*cols + c
			if k < len(plots) {
				grid[r][c] = plots[k]
			} else {
				blank := plot.New()
				blank.HideAxes()
				grid[r][c] = blank
			}
		}
	}

	img := vgimg.New(vg.Length(cols)*TileSize, vg.Length(rows)*TileSize)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Points(2), PadBottom: vg.Points(2),
		PadLeft: vg.Points(2), PadRight: vg.Points(2),
	}
	canvases := plot.Align(grid, tiles, dc)
	for r := range grid {
		for c := range grid[r] {
			grid[r][c].Draw(canvases[r][c])
		}
	}

	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	log.GetLoggerWithName("viz").Debug("figure saved", log.PathKey, path, "viz.panels", len(plots))
	return nil
}
