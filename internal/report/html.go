package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gitwitcho/var-agent-model-sub001/internal/simulation"
	"github.com/gitwitcho/var-agent-model-sub001/internal/strategy"
	"github.com/gitwitcho/var-agent-model-sub001/internal/timeseries"
)

const (
	chartWidthPx  = 1200
	chartHeightPx = 400
)

// WriteHTML renders the price, position and P&L paths of a run into one HTML page
// and returns its path.
func WriteHTML(dir string, res *simulation.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("run %d (seed %d)", res.Index, res.Seed)
	page.SetLayout(components.PageFlexLayout)

	xAxis := make([]int, res.Ticks+1)
	for i := range xAxis {
		xAxis[i] = i
	}

	prices := newLineChart("Log price and log reference value", xAxis)
	for _, id := range res.Assets {
		addSeries(prices, res, id+"/log-price", id+" log price")
		addSeries(prices, res, id+"/log-reference", id+" log reference")
	}
	page.AddCharts(prices)

	for _, id := range res.Assets {
		net := newLineChart(id+" net position by class", xAxis)
		for _, k := range strategy.Kinds {
			addSeries(net, res, id+"/"+k.String()+"/net-position", k.String())
		}
		page.AddCharts(net)
	}

	pnl := newLineChart("Cumulative profit and loss by class", xAxis)
	for _, k := range strategy.Kinds {
		addSeries(pnl, res, k.String()+"/paper-pnl", k.String()+" paper")
		addSeries(pnl, res, k.String()+"/realized-pnl", k.String()+" realized")
	}
	page.AddCharts(pnl)

	path := filepath.Join(dir, FileName(res)+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", path, err)
	}
	return path, f.Close()
}

func newLineChart(title string, xAxis []int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  fmt.Sprintf("%dpx", chartWidthPx),
			Height: fmt.Sprintf("%dpx", chartHeightPx),
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "30"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	line.SetXAxis(xAxis)
	return line
}

func addSeries(line *charts.Line, res *simulation.Result, name, label string) {
	s, ok := res.Series(name)
	if !ok {
		return
	}
	line.AddSeries(label, toLineData(s))
}

func toLineData(s *timeseries.Series) []opts.LineData {
	values := s.Values()
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			data[i] = opts.LineData{Value: nil}
			continue
		}
		data[i] = opts.LineData{Value: math.Round(v*1e4) / 1e4}
	}
	return data
}
