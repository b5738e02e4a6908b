package render

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/banshee-data/pixelgrid/internal/grid"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// viridis is the visual map ramp used by the HTML output.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

func indexLabels(idx []float64) []string {
	out := make([]string, len(idx))
	for i, v := range idx {
		out[i] = strconv.FormatFloat(v, 'g', 4, 64)
	}
	return out
}

// HeatMapData returns one item per non-empty cell as [px, py, value].
// Zero cells are skipped for count-like reductions to keep pages small.
func HeatMapData(g *grid.Grid, logColor bool) (data []opts.HeatMapData, lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for py := 0; py < g.Height; py++ {
		for px := 0; px < g.Width; px++ {
			v := g.At(px, py)
			if math.IsNaN(v) || math.IsInf(v, 0) || v == 0 {
				continue
			}
			if logColor {
				if v < 0 {
					continue
				}
				v = math.Log10(v)
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			data = append(data, opts.HeatMapData{Value: [3]interface{}{px, py, v}})
		}
	}
	return data, lo, hi
}

// NewHeatMap builds the echarts heatmap of g.
func NewHeatMap(g *grid.Grid, o Options) *charts.HeatMap {
	data, lo, hi := HeatMapData(g, o.LogColor)
	if len(data) == 0 {
		lo, hi = 0, 1
	}
	title := o.Title
	if title == "" {
		title = g.Reduction
	}
	sub := fmt.Sprintf("%dx%d x=%s y=%s cells=%d", g.Width, g.Height, g.XAxis, g.YAxis, len(data))
	if o.LogColor {
		sub += " color=log10"
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "pixelgrid " + title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: sub}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: indexLabels(g.XIndex), Name: "x", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: indexLabels(g.YIndex), Name: "y", NameLocation: "middle", NameGap: 40}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.AddSeries(g.Reduction, data)
	return hm
}

// WriteHTML renders g as a standalone echarts page.
func WriteHTML(w io.Writer, g *grid.Grid, o Options) error {
	if err := NewHeatMap(g, o).Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
