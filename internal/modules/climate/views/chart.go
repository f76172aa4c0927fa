package views

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"climate-tracker/internal/modules/climate/types"
)

const (
	chartWidth  = 800
	chartHeight = 360
	chartTitle  = "Live Temperature Readings"
)

var emptyPlotSVG = []byte(fmt.Sprintf(
	`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img" aria-label="No readings yet">`+
		`<rect width="100%%" height="100%%" fill="#ffffff"/>`+
		`<text x="50%%" y="50%%" text-anchor="middle" font-family="sans-serif" font-size="14" fill="#6c757d">Waiting for readings</text>`+
		`</svg>`,
	chartWidth, chartHeight, chartWidth, chartHeight,
))

// Plot is a rendered chart. Empty plots carry a placeholder SVG.
type Plot struct {
	Empty bool
	SVG   []byte
}

// RenderChart draws temperature against time as points plus the regression
// line from rows. The two slices must come from the same snapshot.
func RenderChart(window []types.Reading, rows []types.Row) (Plot, error) {
	if len(window) == 0 {
		return Plot{Empty: true, SVG: emptyPlotSVG}, nil
	}
	if len(rows) != len(window) {
		return Plot{}, fmt.Errorf("chart: %d table rows for %d readings", len(rows), len(window))
	}

	xs := make([]time.Time, len(window))
	temps := make([]float64, len(window))
	line := make([]float64, len(window))
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i, r := range window {
		t, err := readingTime(r)
		if err != nil {
			return Plot{}, err
		}
		xs[i] = t
		temps[i] = r.TemperatureC
		line[i] = rows[i].Regression
		minY = math.Min(minY, math.Min(temps[i], line[i]))
		maxY = math.Max(maxY, math.Max(temps[i], line[i]))
	}

	// go-chart rejects zero-width ranges, which a single reading or a flat
	// window would otherwise produce.
	minX, maxX := chart.TimeToFloat64(xs[0]), chart.TimeToFloat64(xs[len(xs)-1])
	if maxX <= minX {
		minX -= float64(time.Second)
		maxX += float64(time.Second)
	}
	minY, maxY = math.Floor(minY*2)/2-0.5, math.Ceil(maxY*2)/2+0.5

	ch := chart.Chart{
		Title:      chartTitle,
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis: chart.XAxis{
			Name:           "Time",
			ValueFormatter: chart.TimeValueFormatterWithFormat("15:04:05"),
			Range:          &chart.ContinuousRange{Min: minX, Max: maxX},
		},
		YAxis: chart.YAxis{
			Name:  "Temperature (°C)",
			Range: &chart.ContinuousRange{Min: minY, Max: maxY},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name: "°C",
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    4,
					DotColor:    chart.ColorBlue,
				},
				XValues: xs,
				YValues: temps,
			},
			chart.TimeSeries{
				Name: "Trend Line",
				Style: chart.Style{
					StrokeWidth: 2,
					StrokeColor: chart.ColorRed,
				},
				XValues: xs,
				YValues: line,
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.SVG, &buf); err != nil {
		return Plot{}, fmt.Errorf("chart render: %w", err)
	}
	return Plot{SVG: buf.Bytes()}, nil
}

func readingTime(r types.Reading) (time.Time, error) {
	if !r.Time.IsZero() {
		return r.Time, nil
	}
	t, err := time.ParseInLocation(types.TimestampLayout, r.Timestamp, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("chart: parse timestamp %q: %w", r.Timestamp, err)
	}
	return t, nil
}
