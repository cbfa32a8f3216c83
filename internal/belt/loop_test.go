package belt_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/belt"
	"github.com/MindyZHAOMinzhu/xm125/internal/recorder"
)

// fakeDevice 按脚本返回读数（nil 表示该 tick 没数据），并统计释放调用次数
type fakeDevice struct {
	openErr  error
	readings []*float64
	next     int

	startCalls int
	stopCalls  int
	closeCalls int
}

func (d *fakeDevice) Open() error { return d.openErr }

func (d *fakeDevice) Start(period time.Duration) error {
	d.startCalls++
	return nil
}

func (d *fakeDevice) Read() (*belt.Reading, error) {
	if d.next >= len(d.readings) {
		return nil, belt.ErrNoReading
	}
	r := d.readings[d.next]
	d.next++
	if r == nil {
		return nil, belt.ErrNoReading
	}
	return &belt.Reading{BPM: *r}, nil
}

func (d *fakeDevice) Stop() error {
	d.stopCalls++
	return nil
}

func (d *fakeDevice) Close() error {
	d.closeCalls++
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func newTestLoop(t *testing.T, dev *fakeDevice, cfg belt.LoopConfig) (*belt.Loop, string) {
	t.Helper()
	csvPath := filepath.Join(t.TempDir(), "test_belt.csv")
	rec, err := recorder.NewCSVRecorder(csvPath, belt.CSVHeader)
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })
	return belt.NewLoop(cfg, dev, rec, nil, zap.NewNop()), csvPath
}

func readRows(t *testing.T, csvPath string) [][]string {
	t.Helper()
	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows[1:]
}

func TestLoop_OpenFailure(t *testing.T) {
	dev := &fakeDevice{openErr: errors.New("usb not found")}
	loop, _ := newTestLoop(t, dev, belt.LoopConfig{
		SampleInterval: 10 * time.Millisecond,
		Duration:       time.Second,
		NoDataGrace:    100 * time.Millisecond,
	})

	err := loop.Run(context.Background())
	require.ErrorIs(t, err, belt.ErrDeviceOpen)
	// 没打开成功就谈不上释放
	require.Zero(t, dev.stopCalls)
	require.Zero(t, dev.closeCalls)
}

func TestLoop_NoDataWithinGracePeriod(t *testing.T) {
	dev := &fakeDevice{} // 永远不出数据
	loop, _ := newTestLoop(t, dev, belt.LoopConfig{
		SampleInterval: 20 * time.Millisecond,
		Duration:       10 * time.Second,
		NoDataGrace:    150 * time.Millisecond,
	})

	started := time.Now()
	err := loop.Run(context.Background())
	elapsed := time.Since(started)

	require.ErrorIs(t, err, belt.ErrNoData)
	// 宽限时间一到就该放弃，不会拖到整个采集时长
	require.Greater(t, elapsed, 150*time.Millisecond)
	require.Less(t, elapsed, 2*time.Second)
	// 释放恰好尝试一次
	require.Equal(t, 1, dev.stopCalls)
	require.Equal(t, 1, dev.closeCalls)
}

func TestLoop_IsNewValueFlag(t *testing.T) {
	dev := &fakeDevice{readings: []*float64{
		floatPtr(12), floatPtr(12), floatPtr(13), floatPtr(13), floatPtr(12),
	}}
	loop, csvPath := newTestLoop(t, dev, belt.LoopConfig{
		SampleInterval: 10 * time.Millisecond,
		Duration:       120 * time.Millisecond,
		NoDataGrace:    time.Second,
	})

	require.NoError(t, loop.Run(context.Background()))

	rows := readRows(t, csvPath)
	require.GreaterOrEqual(t, len(rows), 5)

	wantIsNew := []string{"true", "false", "true", "false", "true"}
	for i, want := range wantIsNew {
		require.Equal(t, want, rows[i][4], "row %d", i)
	}
	require.Equal(t, "12.00", rows[0][3])
	require.Equal(t, 1, dev.stopCalls)
	require.Equal(t, 1, dev.closeCalls)
}

func TestLoop_TransientGapDoesNotAbort(t *testing.T) {
	dev := &fakeDevice{readings: []*float64{
		floatPtr(14), nil, nil, floatPtr(15),
	}}
	loop, csvPath := newTestLoop(t, dev, belt.LoopConfig{
		SampleInterval: 10 * time.Millisecond,
		Duration:       100 * time.Millisecond,
		NoDataGrace:    time.Second,
	})

	require.NoError(t, loop.Run(context.Background()))

	rows := readRows(t, csvPath)
	// 中间的空读只跳过，不落行也不中止
	require.GreaterOrEqual(t, len(rows), 2)
	require.Equal(t, "14.00", rows[0][3])
	require.Equal(t, "15.00", rows[1][3])
}

func TestLoop_InterruptReleasesDeviceOnce(t *testing.T) {
	dev := &fakeDevice{readings: []*float64{floatPtr(12)}}
	loop, _ := newTestLoop(t, dev, belt.LoopConfig{
		SampleInterval: 20 * time.Millisecond,
		Duration:       10 * time.Second,
		NoDataGrace:    time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(60 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	err := loop.Run(ctx)

	// 外部打断按正常结束处理
	require.NoError(t, err)
	require.Less(t, time.Since(started), 2*time.Second)
	require.Equal(t, 1, dev.stopCalls)
	require.Equal(t, 1, dev.closeCalls)
}
