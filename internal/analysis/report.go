package analysis

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"
)

// reportHeader 对齐明细表的表头（雷达全部列 + 呼吸带全部列）
var reportHeader = []string{
	"Timestamp",
	"Unix_Time",
	"Quality_Flag",
	"Breath_Rate_BPM",
	"App_State",
	"Distances_Being_Analyzed",
	"Presence_Detected",
	"Presence_Distance_m",
	"Intra_Presence_Score",
	"Inter_Presence_Score",
	"Presence_Distance_Index",
	"Radar_Enter_Time",
	"Belt_Timestamp",
	"Belt_Unix_Time",
	"Belt_Time_HMS",
	"Belt_Breath_Rate_BPM",
	"Belt_Is_New_Value",
	"Pair_Time_Diff_s",
}

// WriteReport 把对齐明细和指标汇总导出为 Excel 工作簿
//
// Merged 表是逐行对齐结果，Summary 表是指标汇总，
// 方便不跑脚本的人直接看数。
func WriteReport(path string, merged []MergedRow, m *Metrics) error {
	f := excelize.NewFile()
	defer f.Close()

	mergedSheet := "Merged"
	index, err := f.NewSheet(mergedSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	header := make([]any, len(reportHeader))
	for i, h := range reportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(mergedSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	endCol, _ := excelize.ColumnNumberToName(len(reportHeader))
	if err := f.SetCellStyle(mergedSheet, "A1", endCol+"1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range merged {
		cells := mergedRowCells(row)
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(mergedSheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := writeSummarySheet(f, headerStyle, m); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func mergedRowCells(row MergedRow) []any {
	cells := []any{
		cellFloat(row.Radar.Timestamp),
		cellFloat(row.Radar.UnixTime),
		row.Radar.QualityFlag,
		cellFloat(row.Radar.BreathRateBPM),
		row.Radar.AppState,
		row.Radar.Distances,
		row.Radar.PresenceDetected,
		cellFloat(row.Radar.PresenceDistanceM),
		cellFloat(row.Radar.IntraScore),
		cellFloat(row.Radar.InterScore),
		row.Radar.DistanceIndex,
		cellFloat(row.Radar.RadarEnterTime),
	}
	if row.Belt != nil {
		cells = append(cells,
			cellFloat(row.Belt.Timestamp),
			cellFloat(row.Belt.UnixTime),
			row.Belt.TimeHMS,
			cellFloat(row.Belt.BPM),
			row.Belt.IsNew,
			cellFloat(row.TimeDiff),
		)
	} else {
		cells = append(cells, nil, nil, nil, nil, nil, nil)
	}
	return cells
}

func writeSummarySheet(f *excelize.File, headerStyle int, m *Metrics) error {
	sheet := "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	rows := [][]any{
		{"Metric", "Value"},
		{"t_presence (radar, in-range)", cellOptFloat(m.TPresence)},
		{"t_first_radar_breath", cellOptFloat(m.TFirstRadarBreath)},
		{"t_first_belt_breath", cellOptFloat(m.TFirstBeltBreath)},
		{"radar_cold_start_from_presence", cellOptFloat(m.ColdStartFromPresence)},
		{"n_overlap_samples", cellOptInt(m.NOverlapSamples)},
		{"mean_abs_error_bpm", cellOptFloat(m.MeanAbsErrorBPM)},
		{"mean_signed_error_bpm", cellOptFloat(m.MeanSignedErrorBPM)},
		{"corr_radar_belt", cellOptFloat(m.CorrRadarBelt)},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("style summary header: %w", err)
	}
	return nil
}

// cellFloat NaN 的数值单元格留空
func cellFloat(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func cellOptFloat(v *float64) any {
	if v == nil {
		return "n/a"
	}
	return *v
}

func cellOptInt(v *int) any {
	if v == nil {
		return "n/a"
	}
	return *v
}
