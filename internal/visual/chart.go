package visual

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"context-magnifier/internal/grid"
)

// RenderChart writes an HTML heatmap of the importance matrix. Rows are
// rendered top-down to match screen orientation.
func RenderChart(w io.Writer, snap *grid.Snapshot) error {
	if snap == nil || snap.Matrix == nil {
		return fmt.Errorf("visual: nil snapshot")
	}

	cols := make([]string, snap.Cols)
	for c := range cols {
		cols[c] = fmt.Sprintf("c%d", c)
	}
	rows := make([]string, snap.Rows)
	for r := range rows {
		// Echarts draws category axes bottom-up; invert so row 0 sits
		// at the top like on screen.
		rows[r] = fmt.Sprintf("r%d", snap.Rows-1-r)
	}

	data := make([]opts.HeatMapData, 0, snap.Cols*snap.Rows)
	maxVal := 0.0
	for r := 0; r < snap.Rows; r++ {
		for c := 0; c < snap.Cols; c++ {
			v := snap.Matrix.At(r, c)
			if v > maxVal {
				maxVal = v
			}
			data = append(data, opts.HeatMapData{
				Value: [3]interface{}{c, snap.Rows - 1 - r, v},
			})
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Importance Grid",
			Width:     "900px",
			Height:    "560px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Screen Importance",
			Subtitle: fmt.Sprintf("%dx%d cells, generation %d", snap.Cols, snap.Rows, snap.Generation),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: cols, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: rows, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxVal),
			InRange: &opts.VisualMapInRange{
				Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#b5de2b", "#fde725"},
			},
		}),
	)
	hm.AddSeries("importance", data)

	return hm.Render(w)
}
