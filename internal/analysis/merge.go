package analysis

import (
	"math"
	"sort"
)

// MergedRow 时间对齐后的 (radar, belt) 行
//
// Belt 为 nil 表示容差内没有可配对的呼吸带样本，呼吸带侧字段整体缺失。
type MergedRow struct {
	Radar RadarSample
	Belt  *BeltSample
	// TimeDiff 配对双方时间戳之差的绝对值（无配对时为 NaN）
	TimeDiff float64
}

// MergeAsof 按时间戳做最近邻 asof 对齐
//
// 每一行雷达样本配对时间上最近的呼吸带样本，双方时间戳相差不超过
// toleranceS 才算配对；最近邻可以往前也可以往后找，不限方向。
// 多行雷达样本允许配到同一个呼吸带样本。
//
// beltShiftS 在对齐前从呼吸带时间戳里减掉（校正经验观察到的固定钟差）：
// shift 为 +X 等价于把所有呼吸带时间戳减 X 后用 0 对齐。
//
// 输出按雷达时间戳升序；时间戳缺失的行排在最后且不配对。
func MergeAsof(radarRows []RadarSample, beltRows []BeltSample, beltShiftS, toleranceS float64) []MergedRow {
	// 呼吸带侧：应用钟差并按移位后时间排序（时间戳缺失的不参与配对）
	type shiftedBelt struct {
		ts     float64
		sample BeltSample
	}
	belts := make([]shiftedBelt, 0, len(beltRows))
	for _, b := range beltRows {
		if math.IsNaN(b.Timestamp) {
			continue
		}
		belts = append(belts, shiftedBelt{ts: b.Timestamp - beltShiftS, sample: b})
	}
	sort.Slice(belts, func(i, j int) bool { return belts[i].ts < belts[j].ts })

	radarSorted := make([]RadarSample, len(radarRows))
	copy(radarSorted, radarRows)
	sort.Slice(radarSorted, func(i, j int) bool {
		ti, tj := radarSorted[i].Timestamp, radarSorted[j].Timestamp
		if math.IsNaN(tj) {
			return !math.IsNaN(ti)
		}
		if math.IsNaN(ti) {
			return false
		}
		return ti < tj
	})

	merged := make([]MergedRow, 0, len(radarSorted))
	for _, r := range radarSorted {
		row := MergedRow{Radar: r, TimeDiff: math.NaN()}

		if !math.IsNaN(r.Timestamp) && len(belts) > 0 {
			// 第一个移位后时间 >= 雷达时间的位置，最近邻在它和它左边一个之间
			i := sort.Search(len(belts), func(k int) bool { return belts[k].ts >= r.Timestamp })

			best := -1
			bestDiff := math.Inf(1)
			for _, k := range []int{i - 1, i} {
				if k < 0 || k >= len(belts) {
					continue
				}
				diff := math.Abs(belts[k].ts - r.Timestamp)
				if diff < bestDiff {
					best = k
					bestDiff = diff
				}
			}
			if best >= 0 && bestDiff <= toleranceS {
				b := belts[best].sample
				row.Belt = &b
				row.TimeDiff = bestDiff
			}
		}

		merged = append(merged, row)
	}
	return merged
}
