package radar_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/radar"
	"github.com/MindyZHAOMinzhu/xm125/internal/recorder"
)

// fakeFrameSource 按脚本返回帧，播完后模拟后台进程结束
type fakeFrameSource struct {
	frames []*radar.ProcessedFrame
	next   int
}

func (f *fakeFrameSource) Next() (*radar.ProcessedFrame, error) {
	if f.next >= len(f.frames) {
		return nil, radar.ErrProcessStopped
	}
	frame := f.frames[f.next]
	f.next++
	return frame, nil
}

func runLoop(t *testing.T, frames []*radar.ProcessedFrame) [][]string {
	t.Helper()

	csvPath := filepath.Join(t.TempDir(), "test_radar.csv")
	rec, err := recorder.NewCSVRecorder(csvPath, radar.CSVHeader)
	require.NoError(t, err)

	loop := radar.NewLoop(radar.LoopConfig{
		EnterDistanceMinM: 0.4,
		EnterDistanceMaxM: 0.7,
		SessionStartUnix:  0,
	}, &fakeFrameSource{frames: frames}, rec, nil, zap.NewNop())

	require.NoError(t, loop.Run(context.Background()))
	require.NoError(t, rec.Close())

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, radar.CSVHeader, rows[0])
	return rows[1:]
}

func col(t *testing.T, name string) int {
	t.Helper()
	for i, h := range radar.CSVHeader {
		if h == name {
			return i
		}
	}
	t.Fatalf("unknown column %s", name)
	return -1
}

func TestLoop_WritesOneRowPerFrameWithQuality(t *testing.T) {
	frames := []*radar.ProcessedFrame{
		{}, // none
		{PresenceResult: &radar.PresenceResult{PresenceDetected: true, PresenceDistance: 0.9}},
		{
			BreathingResult: &radar.BreathingResult{},
			PresenceResult:  &radar.PresenceResult{PresenceDetected: true, PresenceDistance: 0.55},
		},
		{
			BreathingResult: &radar.BreathingResult{BreathingRate: floatPtr(12.5)},
			PresenceResult:  &radar.PresenceResult{PresenceDetected: true, PresenceDistance: 0.55},
		},
	}

	rows := runLoop(t, frames)
	require.Len(t, rows, 4)

	qf := col(t, "Quality_Flag")
	require.Equal(t, "none", rows[0][qf])
	require.Equal(t, "presence_only", rows[1][qf])
	require.Equal(t, "breathing_no_rate", rows[2][qf])
	require.Equal(t, "breathing", rows[3][qf])

	// breathing 行必须带有效 rate，其它行留空
	rate := col(t, "Breath_Rate_BPM")
	require.Equal(t, "", rows[0][rate])
	require.Equal(t, "", rows[1][rate])
	require.Equal(t, "", rows[2][rate])
	require.Equal(t, "12.50", rows[3][rate])
}

func TestLoop_EnterTimeLatchedOnce(t *testing.T) {
	outOfRange := &radar.PresenceResult{PresenceDetected: true, PresenceDistance: 0.9}
	inRange := &radar.PresenceResult{PresenceDetected: true, PresenceDistance: 0.55}
	inRangeLater := &radar.PresenceResult{PresenceDetected: true, PresenceDistance: 0.45}

	frames := []*radar.ProcessedFrame{
		{PresenceResult: outOfRange}, // 窗口外：不触发
		{PresenceResult: inRange},    // 第一次 in-range：latch
		{PresenceResult: inRangeLater},
		{PresenceResult: inRange},
	}

	rows := runLoop(t, frames)
	enter := col(t, "Radar_Enter_Time")

	require.Equal(t, "", rows[0][enter])
	require.NotEqual(t, "", rows[1][enter])
	// 之后每一行都回显同一个值
	require.Equal(t, rows[1][enter], rows[2][enter])
	require.Equal(t, rows[1][enter], rows[3][enter])
}

func TestLoop_EnterRequiresDetectionInsideWindow(t *testing.T) {
	frames := []*radar.ProcessedFrame{
		// 距离在窗口内但没检测到 presence：不触发
		{PresenceResult: &radar.PresenceResult{PresenceDetected: false, PresenceDistance: 0.5}},
		// 检测到但在窗口外：不触发
		{PresenceResult: &radar.PresenceResult{PresenceDetected: true, PresenceDistance: 0.39}},
		{PresenceResult: &radar.PresenceResult{PresenceDetected: true, PresenceDistance: 0.71}},
		// 窗口端点算在内
		{PresenceResult: &radar.PresenceResult{PresenceDetected: true, PresenceDistance: 0.7}},
	}

	rows := runLoop(t, frames)
	enter := col(t, "Radar_Enter_Time")

	require.Equal(t, "", rows[0][enter])
	require.Equal(t, "", rows[1][enter])
	require.Equal(t, "", rows[2][enter])
	require.NotEqual(t, "", rows[3][enter])
}
