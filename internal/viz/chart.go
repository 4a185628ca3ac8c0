package viz

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ayusman/mudra/internal/gesture"
)

// RenderChart writes an HTML line chart of the palm x, y and z components
// per frame.
func RenderChart(w io.Writer, name string, seq gesture.Sequence) error {
	if seq.Len() == 0 {
		return ErrEmpty
	}

	frames := make([]int, seq.Len())
	xs := make([]opts.LineData, seq.Len())
	ys := make([]opts.LineData, seq.Len())
	zs := make([]opts.LineData, seq.Len())
	for i, f := range seq.Frames {
		frames[i] = i
		xs[i] = opts.LineData{Value: f.Palm.X}
		ys[i] = opts.LineData{Value: f.Palm.Y}
		zs[i] = opts.LineData{Value: f.Palm.Z}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: name, Width: "900px", Height: "500px"}),
		charts.WithTitleOpts(opts.Title{Title: name, Subtitle: fmt.Sprintf("palm position, %d frames", seq.Len())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "position"}),
	)

	line.SetXAxis(frames).
		AddSeries("x", xs).
		AddSeries("y", ys).
		AddSeries("z", zs)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	return line.Render(w)
}
