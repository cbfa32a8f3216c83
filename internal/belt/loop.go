package belt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/recorder"
)

// CSVHeader 呼吸带 CSV 的列（与离线分析约定一致）
var CSVHeader = []string{
	"Timestamp",            // 相对时间（相对于 session_start_unix）
	"Unix_Time",            // 绝对 unix 秒（浮点）
	"Time_HMS",             // HH:MM:SS
	"Belt_Breath_Rate_BPM", // 呼吸率
	"Is_New_Value",         // 是否和上一次读数不同
}

// SamplePublisher 可选的实时样本发布（nil 表示不发布）
type SamplePublisher interface {
	PublishSample(payload []byte) error
}

// LoopConfig 采集循环参数
type LoopConfig struct {
	SampleInterval   time.Duration // 名义采样间隔（默认 1s）
	Duration         time.Duration // 采集总时长
	NoDataGrace      time.Duration // 启动后无数据判失败时限（默认 8s）
	SessionStartUnix float64
}

// Loop 呼吸带采集循环
//
// 每个 tick 的 deadline = 循环起点 + tick 数 × 间隔，
// 按 session 起点排期而不是相对上一次读，漂移不会累积。
type Loop struct {
	cfg       LoopConfig
	dev       Device
	rec       *recorder.CSVRecorder
	publisher SamplePublisher
	logger    *zap.Logger
}

// NewLoop 创建呼吸带采集循环
func NewLoop(cfg LoopConfig, dev Device, rec *recorder.CSVRecorder, publisher SamplePublisher, logger *zap.Logger) *Loop {
	return &Loop{
		cfg:       cfg,
		dev:       dev,
		rec:       rec,
		publisher: publisher,
		logger:    logger,
	}
}

// Run 运行采集循环
//
// 返回值约定：
//   - nil: 正常结束（时长到了或被外部打断）
//   - ErrDeviceOpen: 设备打开/启动失败
//   - ErrNoData: 启动后宽限时间内没有任何读数
//
// 不管循环怎么结束，Stop/Close 都恰好尝试一次；
// 释放阶段的错误只记日志，不改变已经确定的返回值。
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("Opening belt device...")
	if err := l.dev.Open(); err != nil {
		l.logger.Error("Belt device open failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDeviceOpen, err)
	}

	defer func() {
		l.logger.Info("Stopping and closing belt device...")
		if err := l.dev.Stop(); err != nil {
			l.logger.Warn("Belt stop error", zap.Error(err))
		}
		if err := l.dev.Close(); err != nil {
			l.logger.Warn("Belt close error", zap.Error(err))
		}
	}()

	if err := l.dev.Start(l.cfg.SampleInterval); err != nil {
		l.logger.Error("Belt sampling start failed", zap.Error(err))
		return fmt.Errorf("%w: start sampling: %v", ErrDeviceOpen, err)
	}

	l.logger.Info("Starting belt data collection",
		zap.Duration("interval", l.cfg.SampleInterval),
		zap.Duration("duration", l.cfg.Duration),
	)

	start := time.Now()
	gotAnyData := false
	var lastBPM *float64

	for k := 0; time.Since(start) < l.cfg.Duration; {
		now := time.Now()
		unixTime := float64(now.UnixNano()) / 1e9
		elapsed := unixTime - l.cfg.SessionStartUnix
		humanTime := time.Unix(now.Unix(), 0).Format("15:04:05")

		reading, err := l.dev.Read()
		switch {
		case err == nil && reading != nil:
			gotAnyData = true
			isNew := lastBPM == nil || reading.BPM != *lastBPM
			bpm := reading.BPM
			lastBPM = &bpm

			row := []string{
				strconv.FormatFloat(elapsed, 'f', 3, 64),
				strconv.FormatFloat(unixTime, 'f', 3, 64),
				humanTime,
				strconv.FormatFloat(bpm, 'f', 2, 64),
				strconv.FormatBool(isNew),
			}
			if err := l.rec.WriteRow(row); err != nil {
				return err
			}
			l.logger.Info("Belt reading",
				zap.Float64("t_s", elapsed),
				zap.Float64("bpm", bpm),
				zap.Bool("is_new", isNew),
			)
			l.publishSample(elapsed, unixTime, bpm, isNew)
		case errors.Is(err, ErrNoReading), err == nil:
			l.logger.Warn("No data returned", zap.String("time", humanTime))
		default:
			// 单次读取错误：记日志，循环继续
			l.logger.Warn("Belt read error", zap.String("time", humanTime), zap.Error(err))
		}

		// 从启动到现在都没拿到任何数据，且超过宽限时间 → 判失败
		if !gotAnyData && time.Since(start) > l.cfg.NoDataGrace {
			l.logger.Error("No belt data after startup grace period, giving up",
				zap.Duration("grace", l.cfg.NoDataGrace),
			)
			return ErrNoData
		}

		k++
		nextTick := start.Add(time.Duration(k) * l.cfg.SampleInterval)
		wait := time.Until(nextTick)
		if wait > 0 {
			select {
			case <-ctx.Done():
				l.logger.Info("Belt collection interrupted", zap.Int("rows", l.rec.Rows()))
				return nil
			case <-time.After(wait):
			}
		} else {
			select {
			case <-ctx.Done():
				l.logger.Info("Belt collection interrupted", zap.Int("rows", l.rec.Rows()))
				return nil
			default:
			}
		}
	}

	l.logger.Info("Belt collection finished",
		zap.Int("rows", l.rec.Rows()),
		zap.String("csv", l.rec.Path()),
	)
	return nil
}

// beltSampleMsg MQTT 实时样本的载荷
type beltSampleMsg struct {
	Timestamp float64 `json:"timestamp"`
	UnixTime  float64 `json:"unix_time"`
	BPM       float64 `json:"belt_breath_rate_bpm"`
	IsNew     bool    `json:"is_new_value"`
}

func (l *Loop) publishSample(elapsed, unixTime, bpm float64, isNew bool) {
	if l.publisher == nil {
		return
	}
	payload, err := json.Marshal(beltSampleMsg{
		Timestamp: elapsed,
		UnixTime:  unixTime,
		BPM:       bpm,
		IsNew:     isNew,
	})
	if err != nil {
		l.logger.Warn("Marshal sample failed", zap.Error(err))
		return
	}
	if err := l.publisher.PublishSample(payload); err != nil {
		// 发布失败不影响采集
		l.logger.Warn("Publish sample failed", zap.Error(err))
	}
}
