package charts

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/ternarybob/krxdigest/internal/interfaces"
)

// Panel pixel size; the document scales it into a grid cell.
const (
	panelWidth  = 640
	panelHeight = 480
)

// RenderPanel renders one equity-vs-benchmark comparison as PNG.
// The equity is a solid red line, the benchmark a dashed gray line.
// font may be nil, in which case go-chart's default font is used.
func RenderPanel(panel interfaces.ChartPanel, benchmarkLabel string, font *truetype.Font) ([]byte, error) {
	n := len(panel.Dates)
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", n)
	}
	if len(panel.Equity) != n || len(panel.Benchmark) != n {
		return nil, fmt.Errorf("series length mismatch: dates %d, equity %d, benchmark %d", n, len(panel.Equity), len(panel.Benchmark))
	}

	equitySeries := chart.TimeSeries{
		Name: panel.Title,
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("dc2626"), // red-600
			StrokeWidth: 2,
		},
		XValues: panel.Dates,
		YValues: panel.Equity,
	}

	benchmarkSeries := chart.TimeSeries{
		Name: benchmarkLabel,
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("6b7280"), // gray-500
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: panel.Dates,
		YValues: panel.Benchmark,
	}

	lo, hi := yRange(panel.Equity, panel.Benchmark)

	graph := chart.Chart{
		Title:  panel.Title,
		Width:  panelWidth,
		Height: panelHeight,
		Font:   font,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("01-02")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.2f", f)
				}
				return ""
			},
			GridMajorStyle: chart.Style{
				StrokeColor: drawing.ColorFromHex("e5e7eb"), // gray-200
				StrokeWidth: 1,
			},
		},
		Series: []chart.Series{
			equitySeries,
			benchmarkSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// yRange pads the combined min/max so a flat series still has a drawable range.
func yRange(series ...[]float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 2
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 0.01
	}
	return lo - pad, hi + pad
}

// windowLabel describes the span of a panel, e.g. "2024-02-05 ~ 2024-03-05".
func windowLabel(dates []time.Time) string {
	if len(dates) == 0 {
		return ""
	}
	return dates[0].Format("2006-01-02") + " ~ " + dates[len(dates)-1].Format("2006-01-02")
}
