package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotBPM 画雷达 vs 呼吸带呼吸率曲线图并保存为 PNG
//
// 只是目检用，失败由调用方兜住，不影响指标输出。
func PlotBPM(merged []MergedRow, title, outPath string) error {
	var radarXY, beltXY plotter.XYs
	for _, row := range merged {
		if math.IsNaN(row.Radar.Timestamp) {
			continue
		}
		if !math.IsNaN(row.Radar.BreathRateBPM) {
			radarXY = append(radarXY, plotter.XY{X: row.Radar.Timestamp, Y: row.Radar.BreathRateBPM})
		}
		if row.Belt != nil && !math.IsNaN(row.Belt.BPM) {
			beltXY = append(beltXY, plotter.XY{X: row.Radar.Timestamp, Y: row.Belt.BPM})
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Breathing rate (BPM)"
	p.Add(plotter.NewGrid())

	radarLine, err := plotter.NewLine(radarXY)
	if err != nil {
		return fmt.Errorf("radar line: %w", err)
	}
	radarLine.Color = plotutil.Color(0)

	beltLine, err := plotter.NewLine(beltXY)
	if err != nil {
		return fmt.Errorf("belt line: %w", err)
	}
	beltLine.Color = plotutil.Color(1)

	p.Add(radarLine, beltLine)
	p.Legend.Add("Radar BPM", radarLine)
	p.Legend.Add("Belt BPM", beltLine)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 5*vg.Inch, outPath); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
