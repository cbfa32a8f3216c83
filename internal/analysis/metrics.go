package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics 一个 session 的可行性指标
//
// 指针为 nil 表示该指标不可得（比如重叠样本数为 0 时的误差/相关性），
// 和数值恰好为 0.0 是两回事。
type Metrics struct {
	TPresence         *float64 // 第一次 presence in range（雷达）
	TFirstRadarBreath *float64
	TFirstBeltBreath  *float64

	// ColdStartFromPresence 第一次有效呼吸率减第一次 in-range presence
	ColdStartFromPresence *float64

	MeanAbsErrorBPM    *float64
	MeanSignedErrorBPM *float64
	CorrRadarBelt      *float64 // Pearson 相关系数
	NOverlapSamples    *int
}

// ComputeMetrics 从对齐后的数据计算可行性指标
//
// 误差/相关性只在两边都有有效呼吸率的配对行上计算；
// 没有任何有效配对时这四项置 nil（不可得），不是 0。
func ComputeMetrics(ev RadarEvents, tFirstBelt *float64, merged []MergedRow) *Metrics {
	m := &Metrics{
		TPresence:         ev.TPresence,
		TFirstRadarBreath: ev.TFirstBreath,
		TFirstBeltBreath:  tFirstBelt,
	}

	if ev.TPresence != nil && ev.TFirstBreath != nil {
		latency := *ev.TFirstBreath - *ev.TPresence
		m.ColdStartFromPresence = &latency
	}

	var radarBPM, beltBPM []float64
	for _, row := range merged {
		if row.Belt == nil {
			continue
		}
		if math.IsNaN(row.Radar.BreathRateBPM) || math.IsNaN(row.Belt.BPM) {
			continue
		}
		radarBPM = append(radarBPM, row.Radar.BreathRateBPM)
		beltBPM = append(beltBPM, row.Belt.BPM)
	}

	if len(radarBPM) == 0 {
		// 没有任何有效配对：四个重叠指标都不可得
		return m
	}
	n := len(radarBPM)
	m.NOverlapSamples = &n

	diffs := make([]float64, len(radarBPM))
	absDiffs := make([]float64, len(radarBPM))
	for i := range radarBPM {
		diffs[i] = radarBPM[i] - beltBPM[i]
		absDiffs[i] = math.Abs(diffs[i])
	}

	mae := stat.Mean(absDiffs, nil)
	signed := stat.Mean(diffs, nil)
	corr := stat.Correlation(radarBPM, beltBPM, nil)

	m.MeanAbsErrorBPM = &mae
	m.MeanSignedErrorBPM = &signed
	m.CorrRadarBelt = &corr
	return m
}
