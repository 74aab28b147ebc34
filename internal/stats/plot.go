package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Series is one statistics file to plot.
type Series struct {
	Name string
	Rows []Row
}

// MeanSeries averages the steps of every series per episode index. An
// index only some series reach is averaged over those.
func MeanSeries(series []Series) []float64 {
	var sum []float64
	var n []int
	for _, s := range series {
		for i, r := range s.Rows {
			if i >= len(sum) {
				sum = append(sum, 0)
				n = append(n, 0)
			}
			sum[i] += float64(r.Steps)
			n[i]++
		}
	}
	for i := range sum {
		sum[i] /= float64(n[i])
	}
	return sum
}

// Plot renders the learning curves as an HTML line chart: steps needed
// per episode, one line per series, plus their mean when there is more
// than one.
func Plot(w io.Writer, title string, series []Series) error {
	if len(series) == 0 {
		return fmt.Errorf("plot: no series")
	}
	mean := MeanSeries(series)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "steps needed per episode",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Theme:     "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Steps"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	episodes := make([]string, len(mean))
	for i := range episodes {
		episodes[i] = strconv.Itoa(i + 1)
	}
	line.SetXAxis(episodes)

	for _, s := range series {
		items := make([]opts.LineData, 0, len(s.Rows))
		for _, r := range s.Rows {
			items = append(items, opts.LineData{Value: r.Steps})
		}
		line.AddSeries(s.Name, items)
	}
	if len(series) > 1 {
		items := make([]opts.LineData, 0, len(mean))
		for _, v := range mean {
			items = append(items, opts.LineData{Value: v})
		}
		line.AddSeries("mean", items)
	}
	return line.Render(w)
}
