package analysis_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MindyZHAOMinzhu/xm125/internal/analysis"
)

func floatPtr(v float64) *float64 { return &v }

func pair(radarBPM, beltBPM float64) analysis.MergedRow {
	return analysis.MergedRow{
		Radar: analysis.RadarSample{BreathRateBPM: radarBPM},
		Belt:  &analysis.BeltSample{BPM: beltBPM},
	}
}

func TestComputeMetrics_ColdStartLatency(t *testing.T) {
	// presence at t=2.0s，第一次有效呼吸率 t=10.0s → cold start 8.0s
	ev := analysis.RadarEvents{
		TPresence:    floatPtr(2.0),
		TFirstBreath: floatPtr(10.0),
	}

	m := analysis.ComputeMetrics(ev, nil, nil)
	require.NotNil(t, m.ColdStartFromPresence)
	require.InDelta(t, 8.0, *m.ColdStartFromPresence, 1e-9)
}

func TestComputeMetrics_ColdStartAbsentWithoutBothEvents(t *testing.T) {
	m := analysis.ComputeMetrics(analysis.RadarEvents{TPresence: floatPtr(2.0)}, nil, nil)
	require.Nil(t, m.ColdStartFromPresence)

	m = analysis.ComputeMetrics(analysis.RadarEvents{TFirstBreath: floatPtr(10.0)}, nil, nil)
	require.Nil(t, m.ColdStartFromPresence)
}

func TestComputeMetrics_ErrorAndCorrelation(t *testing.T) {
	merged := []analysis.MergedRow{
		pair(10, 11),
		pair(12, 13),
	}

	m := analysis.ComputeMetrics(analysis.RadarEvents{}, nil, merged)

	require.NotNil(t, m.NOverlapSamples)
	require.Equal(t, 2, *m.NOverlapSamples)
	require.NotNil(t, m.MeanAbsErrorBPM)
	require.InDelta(t, 1.0, *m.MeanAbsErrorBPM, 1e-9)
	require.NotNil(t, m.MeanSignedErrorBPM)
	require.InDelta(t, -1.0, *m.MeanSignedErrorBPM, 1e-9)
	require.NotNil(t, m.CorrRadarBelt)
	require.InDelta(t, 1.0, *m.CorrRadarBelt, 1e-9)
}

func TestComputeMetrics_SignedErrorKeepsBiasDirection(t *testing.T) {
	merged := []analysis.MergedRow{
		pair(15, 12), // 雷达偏高
		pair(16, 12),
	}

	m := analysis.ComputeMetrics(analysis.RadarEvents{}, nil, merged)
	require.NotNil(t, m.MeanSignedErrorBPM)
	require.InDelta(t, 3.5, *m.MeanSignedErrorBPM, 1e-9)
	require.NotNil(t, m.MeanAbsErrorBPM)
	require.InDelta(t, 3.5, *m.MeanAbsErrorBPM, 1e-9)
}

func TestComputeMetrics_ZeroOverlapReportsUnavailable(t *testing.T) {
	merged := []analysis.MergedRow{
		// 没有配对
		{Radar: analysis.RadarSample{BreathRateBPM: 12}},
		// 有配对但雷达侧无 rate
		{
			Radar: analysis.RadarSample{BreathRateBPM: math.NaN()},
			Belt:  &analysis.BeltSample{BPM: 14},
		},
		// 有配对但 belt 侧无 rate
		{
			Radar: analysis.RadarSample{BreathRateBPM: 12},
			Belt:  &analysis.BeltSample{BPM: math.NaN()},
		},
	}

	m := analysis.ComputeMetrics(analysis.RadarEvents{}, floatPtr(3.0), merged)

	// 四个重叠指标都是"不可得"，不是 0
	require.Nil(t, m.NOverlapSamples)
	require.Nil(t, m.MeanAbsErrorBPM)
	require.Nil(t, m.MeanSignedErrorBPM)
	require.Nil(t, m.CorrRadarBelt)
	// 和重叠无关的时间点照常给出
	require.NotNil(t, m.TFirstBeltBreath)
	require.InDelta(t, 3.0, *m.TFirstBeltBreath, 1e-9)
}
