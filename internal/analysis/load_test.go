package analysis_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MindyZHAOMinzhu/xm125/internal/analysis"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const radarCSV = `Timestamp,Unix_Time,Quality_Flag,Breath_Rate_BPM,App_State,Distances_Being_Analyzed,Presence_Detected,Presence_Distance_m,Intra_Presence_Score,Inter_Presence_Score,Presence_Distance_Index,Radar_Enter_Time
1.000,1700000001.000,none,,NO_PRESENCE_DETECTED,,,,,,,
2.000,1700000002.000,presence_only,,DETERMINE_DISTANCE_ESTIMATE,[0.450 0.500],True,0.55,5.100,2.300,1,2.000
3.000,1700000003.000,breathing_no_rate,,ESTIMATE_BREATHING_RATE,[0.450 0.500],true,0.56,5.200,2.400,1,2.000
bogus,1700000004.000,breathing,12.x,ESTIMATE_BREATHING_RATE,[0.450 0.500],true,0.56,5.000,2.500,1,2.000
10.000,1700000010.000,breathing,12.50,ESTIMATE_BREATHING_RATE,[0.450 0.500],true,0.56,5.000,2.500,1,2.000
`

func TestLoadRadar_CoercesMalformedNumericsToMissing(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x_radar.csv", radarCSV)

	rows, err := analysis.LoadRadar(path)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	// 坏行不报错，数值按缺失处理
	require.True(t, math.IsNaN(rows[3].Timestamp))
	require.True(t, math.IsNaN(rows[3].BreathRateBPM))

	// "True" 和 "true" 都认
	require.False(t, rows[0].PresenceDetected)
	require.True(t, rows[1].PresenceDetected)
	require.True(t, rows[2].PresenceDetected)

	require.InDelta(t, 12.5, rows[4].BreathRateBPM, 1e-9)
	require.Equal(t, "breathing", rows[4].QualityFlag)
}

func TestExtractRadarEvents(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x_radar.csv", radarCSV)
	rows, err := analysis.LoadRadar(path)
	require.NoError(t, err)

	ev := analysis.ExtractRadarEvents(rows, 0.4, 0.7)
	require.NotNil(t, ev.TPresence)
	require.InDelta(t, 2.0, *ev.TPresence, 1e-9)
	require.NotNil(t, ev.TFirstBreath)
	require.InDelta(t, 10.0, *ev.TFirstBreath, 1e-9)

	// 把窗口缩到 presence 距离够不到的地方 → 没有 enter 事件
	ev = analysis.ExtractRadarEvents(rows, 0.6, 0.7)
	require.Nil(t, ev.TPresence)
}

func TestLoadBelt_FirstBreathAndFlags(t *testing.T) {
	content := `Timestamp,Unix_Time,Time_HMS,Belt_Breath_Rate_BPM,Is_New_Value
1.000,1700000001.000,12:00:01,,true
2.000,1700000002.000,12:00:02,not-a-number,false
3.000,1700000003.000,12:00:03,14.00,true
4.000,1700000004.000,12:00:04,14.00,false
`
	path := writeFile(t, t.TempDir(), "x_belt.csv", content)

	rows, err := analysis.LoadBelt(path)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	require.True(t, math.IsNaN(rows[0].BPM))
	require.True(t, math.IsNaN(rows[1].BPM))
	require.True(t, rows[2].IsNew)
	require.False(t, rows[3].IsNew)

	first := analysis.FirstBeltBreath(rows)
	require.NotNil(t, first)
	require.InDelta(t, 3.0, *first, 1e-9)
}
