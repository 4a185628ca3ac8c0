// Package viz renders palm trajectories of stored gestures as PNG plots
// and interactive HTML charts.
package viz

import (
	"errors"
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ayusman/mudra/internal/gesture"
)

// ErrEmpty is returned for a sequence without frames.
var ErrEmpty = errors.New("viz: sequence has no frames")

// Plot dimensions
const (
	Width  = 8 * vg.Inch
	Height = 6 * vg.Inch
)

// Trajectory builds the plot of the palm path in the image plane. The y axis
// is inverted so the path reads as seen by the camera.
func Trajectory(name string, seq gesture.Sequence) (*plot.Plot, error) {
	if seq.Len() == 0 {
		return nil, ErrEmpty
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - palm trajectory (%d frames)", name, seq.Len())
	p.X.Label.Text = "x"
	p.Y.Label.Text = "-y"

	path := make(plotter.XYs, seq.Len())
	for i, f := range seq.Frames {
		path[i] = plotter.XY{X: f.Palm.X, Y: -f.Palm.Y}
	}

	line, points, err := plotter.NewLinePoints(path)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(1.5)
	points.Color = plotutil.Color(0)
	points.Radius = vg.Points(2)
	p.Add(plotter.NewGrid(), line, points)

	start, err := plotter.NewScatter(path[:1])
	if err != nil {
		return nil, err
	}
	start.Color = plotutil.Color(1)
	start.Radius = vg.Points(4)
	p.Add(start)

	p.Legend.Add("palm", line, points)
	p.Legend.Add("start", start)
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

// WritePNG saves the trajectory plot to path.
func WritePNG(path, name string, seq gesture.Sequence) error {
	p, err := Trajectory(name, seq)
	if err != nil {
		return err
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

// RenderPNG writes the trajectory plot as PNG to w.
func RenderPNG(w io.Writer, name string, seq gesture.Sequence) error {
	p, err := Trajectory(name, seq)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
