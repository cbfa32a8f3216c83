// analyze-session 合并一个 session 的 radar/belt 数据并计算可行性指标
//
// 用法：analyze-session [flags] <session_dir>
//
// 指标汇总先打印，画图/导出失败只报告不中断。
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/analysis"
	"github.com/MindyZHAOMinzhu/xm125/internal/config"
	"github.com/MindyZHAOMinzhu/xm125/internal/logger"
)

func main() {
	beltShiftS := flag.Float64("belt-shift-s", 0, "seconds subtracted from belt timestamps before alignment")
	toleranceS := flag.Float64("tolerance-s", 0.5, "max timestamp difference for a radar/belt pair (seconds)")
	presenceMin := flag.Float64("presence-min", 0.4, "min presence distance (m) for enter detection")
	presenceMax := flag.Float64("presence-max", 0.7, "max presence distance (m) for enter detection")
	noPlot := flag.Bool("no-plot", false, "skip writing the BPM comparison PNG")
	xlsx := flag.Bool("xlsx", false, "also export feasibility_report.xlsx into the session dir")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <session_dir>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(2)
	}
	sessionDir := flag.Arg(0)

	cfg := config.Load()
	zlog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "analyze-session")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("Analyzing session", zap.String("dir", sessionDir))

	files, err := analysis.FindSessionFiles(sessionDir)
	if err != nil {
		zlog.Fatal("Session files not found", zap.Error(err))
	}
	zlog.Info("Session files",
		zap.String("radar_csv", files.RadarCSV),
		zap.String("belt_csv", files.BeltCSV),
	)
	if files.HumanEnterUnix != nil {
		zlog.Info("Human enter time", zap.Float64("unix", *files.HumanEnterUnix))
	} else {
		zlog.Info("Human enter time file not found or invalid")
	}

	radarRows, err := analysis.LoadRadar(files.RadarCSV)
	if err != nil {
		zlog.Fatal("Failed to load radar CSV", zap.Error(err))
	}
	beltRows, err := analysis.LoadBelt(files.BeltCSV)
	if err != nil {
		zlog.Fatal("Failed to load belt CSV", zap.Error(err))
	}

	events := analysis.ExtractRadarEvents(radarRows, *presenceMin, *presenceMax)
	tFirstBelt := analysis.FirstBeltBreath(beltRows)

	merged := analysis.MergeAsof(radarRows, beltRows, *beltShiftS, *toleranceS)
	metrics := analysis.ComputeMetrics(events, tFirstBelt, merged)

	printSummary(metrics)

	if !*noPlot {
		pngPath := filepath.Join(sessionDir, "bpm_comparison.png")
		title := fmt.Sprintf("Radar vs Belt BPM - %s", filepath.Base(sessionDir))
		if err := analysis.PlotBPM(merged, title, pngPath); err != nil {
			zlog.Warn("Plotting failed", zap.Error(err))
		} else {
			zlog.Info("Plot saved", zap.String("path", pngPath))
		}
	}

	if *xlsx {
		xlsxPath := filepath.Join(sessionDir, "feasibility_report.xlsx")
		if err := analysis.WriteReport(xlsxPath, merged, metrics); err != nil {
			zlog.Warn("Excel report failed", zap.Error(err))
		} else {
			zlog.Info("Excel report saved", zap.String("path", xlsxPath))
		}
	}
}

func printSummary(m *analysis.Metrics) {
	fmt.Println()
	fmt.Println("===== FEASIBILITY SUMMARY =====")
	fmt.Printf("t_presence (radar, in-range):      %s\n", fmtOptFloat(m.TPresence))
	fmt.Printf("t_first_radar_breath:              %s\n", fmtOptFloat(m.TFirstRadarBreath))
	fmt.Printf("t_first_belt_breath:               %s\n", fmtOptFloat(m.TFirstBeltBreath))
	fmt.Printf("radar_cold_start_from_presence:    %s\n", fmtOptFloat(m.ColdStartFromPresence))
	fmt.Printf("n_overlap_samples:                 %s\n", fmtOptInt(m.NOverlapSamples))
	fmt.Printf("mean_abs_error_bpm:                %s\n", fmtOptFloat(m.MeanAbsErrorBPM))
	fmt.Printf("mean_signed_error_bpm:             %s\n", fmtOptFloat(m.MeanSignedErrorBPM))
	fmt.Printf("corr_radar_belt:                   %s\n", fmtOptFloat(m.CorrRadarBelt))
	fmt.Println()
}

func fmtOptFloat(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", *v)
}

func fmtOptInt(v *int) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}
