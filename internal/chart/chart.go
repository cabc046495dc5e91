package chart

import (
	"bytes"
	"log"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"cryptopulse/internal/model"
)

// Render draws the price series with optional SMA and RSI overlays and
// returns the encoded PNG. It returns nil when there is not enough data or
// rendering fails: the chart is a best-effort addition to the report, never
// a reason to fail it.
func Render(series []model.PricePoint, smaSeries, rsiSeries []model.OptFloat, title string) (out []byte) {
	if len(series) < 2 {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WARN] chart render panic for %q: %v", title, r)
			out = nil
		}
	}()

	times := make([]time.Time, len(series))
	prices := make([]float64, len(series))
	for i, p := range series {
		times[i] = p.Time
		prices[i] = p.Price
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 450,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("01-02 15:04"),
		},
		YAxis: chart.YAxis{
			Name: "USD",
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Price",
				XValues: times,
				YValues: prices,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 1.6},
			},
		},
	}

	if xs, ys := validPoints(series, smaSeries); len(xs) >= 2 {
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "SMA20",
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: chart.ColorOrange, StrokeWidth: 1.3},
		})
	}

	if xs, ys := validPoints(series, rsiSeries); len(xs) >= 2 {
		graph.YAxisSecondary = chart.YAxis{
			Name:  "RSI",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		}
		graph.Series = append(graph.Series,
			chart.TimeSeries{
				Name:    "RSI14",
				YAxis:   chart.YAxisSecondary,
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: chart.ColorAlternateGreen, StrokeWidth: 1.2, StrokeDashArray: []float64{4, 3}},
			},
			guideLine("Overbought (70)", 70, times, chart.ColorRed),
			guideLine("Oversold (30)", 30, times, chart.ColorAlternateGray),
		)
	}

	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		log.Printf("[WARN] chart render failed for %q: %v", title, err)
		return nil
	}
	return buf.Bytes()
}

// validPoints filters an overlay down to the points where it is defined.
func validPoints(series []model.PricePoint, overlay []model.OptFloat) ([]time.Time, []float64) {
	if len(overlay) != len(series) {
		return nil, nil
	}
	var xs []time.Time
	var ys []float64
	for i, v := range overlay {
		if v.Valid {
			xs = append(xs, series[i].Time)
			ys = append(ys, v.Value)
		}
	}
	return xs, ys
}

// guideLine draws a horizontal reference line across the RSI axis.
func guideLine(name string, level float64, times []time.Time, color drawing.Color) chart.TimeSeries {
	return chart.TimeSeries{
		Name:    name,
		YAxis:   chart.YAxisSecondary,
		XValues: []time.Time{times[0], times[len(times)-1]},
		YValues: []float64{level, level},
		Style:   chart.Style{StrokeColor: color, StrokeWidth: 1.0, StrokeDashArray: []float64{2, 2}},
	}
}
