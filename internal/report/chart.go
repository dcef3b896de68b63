package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ayusman/chikitsa/internal/session"
)

// WriteAngleChart renders the per-frame joint angle series of a session as
// a self-contained HTML line chart.
func WriteAngleChart(w io.Writer, exerciseName string, frames []session.FrameAnalysis) error {
	if len(frames) == 0 {
		return fmt.Errorf("no frames to chart")
	}

	start := frames[0].TimestampMs
	labels := make([]string, 0, len(frames))
	angles := make([]opts.LineData, 0, len(frames))
	for _, f := range frames {
		labels = append(labels, fmt.Sprintf("%.1fs", float64(f.TimestampMs-start)/1000))
		angles = append(angles, opts.LineData{Value: f.Angle})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Chikitsa Session",
			Width:     "1000px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    exerciseName,
			Subtitle: fmt.Sprintf("joint angle over %d frames", len(frames)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "elapsed"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "angle (deg)"}),
	)

	line.SetXAxis(labels)
	line.AddSeries("angle", angles, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))

	return line.Render(w)
}
