package viz

import (
	"github.com/guptarohit/asciigraph"
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan,
	asciigraph.Magenta,
	asciigraph.Yellow,
	asciigraph.Green,
}

// HeightPlot charts the ball height over a run. Heights never go below the
// ground, so the axis starts at zero. Fewer than two samples give "".
func HeightPlot(heights []float64, width, height int, caption string) string {
	if len(heights) < 2 {
		return ""
	}
	return asciigraph.Plot(heights,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.Precision(2),
		asciigraph.Caption(caption),
	)
}

// SeriesPlot charts an arbitrary series such as energy.
func SeriesPlot(series []float64, width, height int, caption string) string {
	if len(series) < 2 {
		return ""
	}
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// ComparePlot overlays several height series, one color each.
func ComparePlot(series [][]float64, width, height int, caption string) string {
	data := make([][]float64, 0, len(series))
	for _, s := range series {
		if len(s) >= 2 {
			data = append(data, s)
		}
	}
	if len(data) == 0 {
		return ""
	}
	colors := make([]asciigraph.AnsiColor, len(data))
	for i := range data {
		colors[i] = seriesColors[i%len(seriesColors)]
	}
	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.Precision(2),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption),
	)
}
