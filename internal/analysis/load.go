package analysis

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// RadarSample 雷达 CSV 的一行
//
// 数值列解析失败或为空时置 NaN（一行坏数据不中断整个分析）。
type RadarSample struct {
	Timestamp         float64
	UnixTime          float64
	QualityFlag       string
	BreathRateBPM     float64
	AppState          string
	Distances         string
	PresenceDetected  bool
	PresenceDistanceM float64
	IntraScore        float64
	InterScore        float64
	DistanceIndex     string
	RadarEnterTime    float64
}

// BeltSample 呼吸带 CSV 的一行
type BeltSample struct {
	Timestamp float64
	UnixTime  float64
	TimeHMS   string
	BPM       float64
	IsNew     bool
}

// LoadRadar 读取雷达 CSV
func LoadRadar(path string) ([]RadarSample, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	col := columnIndex(header)
	samples := make([]RadarSample, 0, len(records))
	for _, rec := range records {
		samples = append(samples, RadarSample{
			Timestamp:         toFloat(field(rec, col, "Timestamp")),
			UnixTime:          toFloat(field(rec, col, "Unix_Time")),
			QualityFlag:       field(rec, col, "Quality_Flag"),
			BreathRateBPM:     toFloat(field(rec, col, "Breath_Rate_BPM")),
			AppState:          field(rec, col, "App_State"),
			Distances:         field(rec, col, "Distances_Being_Analyzed"),
			PresenceDetected:  toBool(field(rec, col, "Presence_Detected")),
			PresenceDistanceM: toFloat(field(rec, col, "Presence_Distance_m")),
			IntraScore:        toFloat(field(rec, col, "Intra_Presence_Score")),
			InterScore:        toFloat(field(rec, col, "Inter_Presence_Score")),
			DistanceIndex:     field(rec, col, "Presence_Distance_Index"),
			RadarEnterTime:    toFloat(field(rec, col, "Radar_Enter_Time")),
		})
	}
	return samples, nil
}

// LoadBelt 读取呼吸带 CSV
func LoadBelt(path string) ([]BeltSample, error) {
	header, records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	col := columnIndex(header)
	samples := make([]BeltSample, 0, len(records))
	for _, rec := range records {
		samples = append(samples, BeltSample{
			Timestamp: toFloat(field(rec, col, "Timestamp")),
			UnixTime:  toFloat(field(rec, col, "Unix_Time")),
			TimeHMS:   field(rec, col, "Time_HMS"),
			BPM:       toFloat(field(rec, col, "Belt_Breath_Rate_BPM")),
			IsNew:     toBool(field(rec, col, "Is_New_Value")),
		})
	}
	return samples, nil
}

// RadarEvents 从雷达数据里提取的关键时间点
type RadarEvents struct {
	// TPresence 第一次 presence in range 的时间
	TPresence *float64
	// TFirstBreath 第一次有有效呼吸率的时间
	TFirstBreath *float64
}

// ExtractRadarEvents 提取第一次 in-range presence 和第一次有效呼吸率的时间
//
// presence 判定：检测到 + 距离落在 [minM, maxM]（含端点）。
// 呼吸判定：质量标签为 breathing 且 BPM 非缺失。
// 两个时间都取满足条件的行里最小的 Timestamp。
func ExtractRadarEvents(samples []RadarSample, minM, maxM float64) RadarEvents {
	var ev RadarEvents
	for _, s := range samples {
		if math.IsNaN(s.Timestamp) {
			continue
		}
		if s.PresenceDetected && !math.IsNaN(s.PresenceDistanceM) &&
			s.PresenceDistanceM >= minM && s.PresenceDistanceM <= maxM {
			if ev.TPresence == nil || s.Timestamp < *ev.TPresence {
				t := s.Timestamp
				ev.TPresence = &t
			}
		}
		if s.QualityFlag == "breathing" && !math.IsNaN(s.BreathRateBPM) {
			if ev.TFirstBreath == nil || s.Timestamp < *ev.TFirstBreath {
				t := s.Timestamp
				ev.TFirstBreath = &t
			}
		}
	}
	return ev
}

// FirstBeltBreath 呼吸带第一次有有效 BPM 的时间
func FirstBeltBreath(samples []BeltSample) *float64 {
	var first *float64
	for _, s := range samples {
		if math.IsNaN(s.Timestamp) || math.IsNaN(s.BPM) {
			continue
		}
		if first == nil || s.Timestamp < *first {
			t := s.Timestamp
			first = &t
		}
	}
	return first
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // 行尾缺列按缺失处理，不报错
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("empty csv %s", path)
	}
	return rows[0], rows[1:], nil
}

func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	return col
}

func field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// toFloat 数值强制转换：空串/坏值 → NaN
func toFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// toBool 布尔强制转换，兼容 "true"/"True"/"1"
func toBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1":
		return true
	}
	return false
}
