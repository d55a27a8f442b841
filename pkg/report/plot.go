package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	chartWidth    = "100%"
	chartHeight   = "520px"
	xAxisRotate   = 40
	categoryColor = "#5470c6"
	labelColor    = "#fac858"
	pageTitle     = "papersift statistics"
)

func barChart(title, subtitle, yAxis string, labels []string, values []int, color string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle, Left: "center"}),
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithGridOpts(opts.Grid{Left: "5%", Right: "5%", Top: "80", Bottom: "20%", ContainLabel: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate, Interval: "0"}}),
		charts.WithYAxisOpts(opts.YAxis{Name: yAxis}),
	)

	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: v}
	}

	bar.SetXAxis(labels).AddSeries(yAxis, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))

	return bar
}

func renderPlot(w io.Writer, stats Stats) error {
	labels := make([]string, len(stats.Counts))
	values := make([]int, len(stats.Counts))

	for i, c := range stats.Counts {
		labels[i] = c.Category
		values[i] = c.Papers
	}

	page := components.NewPage()
	page.PageTitle = pageTitle
	page.AddCharts(barChart("Papers per category",
		fmt.Sprintf("%d papers, %d of %d categories used", stats.Total, stats.Summary.NonEmpty, stats.Summary.Categories),
		"Papers", labels, values, categoryColor))

	if len(stats.NewLabels) > 0 {
		newLabels := make([]string, len(stats.NewLabels))
		newValues := make([]int, len(stats.NewLabels))

		for i, l := range stats.NewLabels {
			newLabels[i] = l.Label
			newValues[i] = l.Papers
		}

		page.AddCharts(barChart("New category labels", "Labels proposed for papers outside the taxonomy",
			"Papers", newLabels, newValues, labelColor))
	}

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}
