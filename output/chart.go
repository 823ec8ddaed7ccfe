package output

import (
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart"
)

// RenderChart draws the curves as a PNG: a solid percent-converted series
// per group with its confidence band dashed in the same colour. The time
// axis is labelled with the given unit.
func RenderChart(curves []Curve, title, unit string, w io.Writer) error {
	var series []chart.Series
	for i, curve := range curves {
		color := chart.GetDefaultColor(i)
		xs, ys := finitePoints(curve.Times, curve.Rates)
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s (n=%d, k=%d)", curve.Group, curve.N, curve.K),
			XValues: xs,
			YValues: percent(ys),
			Style: chart.Style{
				Show:        true,
				StrokeColor: color,
			},
		})
		for _, bound := range [][]float64{curve.Lower, curve.Upper} {
			if bound == nil {
				continue
			}
			bxs, bys := finitePoints(curve.Times, bound)
			series = append(series, chart.ContinuousSeries{
				XValues: bxs,
				YValues: percent(bys),
				Style: chart.Style{
					Show:            true,
					StrokeColor:     color,
					StrokeDashArray: []float64{5.0, 5.0},
				},
			})
		}
	}

	graph := chart.Chart{
		Title:      title,
		TitleStyle: chart.StyleShow(),
		XAxis: chart.XAxis{
			Name:      unit,
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		YAxis: chart.YAxis{
			Name:      "Converted (%)",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}
	return graph.Render(chart.PNG, w)
}

// finitePoints drops the NaN points a model reports past its horizon; the
// chart simply stops where the estimate does.
func finitePoints(ts, vs []float64) (xs, ys []float64) {
	for i := range ts {
		if math.IsNaN(vs[i]) {
			continue
		}
		xs = append(xs, ts[i])
		ys = append(ys, vs[i])
	}
	return xs, ys
}

func percent(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = v * 100
	}
	return out
}
