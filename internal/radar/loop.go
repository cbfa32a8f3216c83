package radar

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/recorder"
)

// CSVHeader 雷达 CSV 的列（与离线分析约定一致）
var CSVHeader = []string{
	"Timestamp",              // 相对时间（相对于 session_start_unix）
	"Unix_Time",              // 绝对 unix time
	"Quality_Flag",           // breathing / breathing_no_rate / presence_only / none
	"Breath_Rate_BPM",
	"App_State",
	"Distances_Being_Analyzed",
	"Presence_Detected",
	"Presence_Distance_m",
	"Intra_Presence_Score",
	"Inter_Presence_Score",
	"Presence_Distance_Index",
	"Radar_Enter_Time", // 第一次检测到 presence in range 的时间（秒），未检测则为空
}

// SamplePublisher 可选的实时样本发布（nil 表示不发布）
type SamplePublisher interface {
	PublishSample(payload []byte) error
}

// LoopConfig 采集循环参数
type LoopConfig struct {
	// 判定"人进入"的距离窗口（含端点）
	EnterDistanceMinM float64
	EnterDistanceMaxM float64
	// SessionStartUnix 共享的 session 起始时间
	SessionStartUnix float64
}

// Loop 雷达采集循环
//
// 每帧：分类 → 进入时间 latch → 写一行 CSV。
// radar_enter_time 一个 session 最多记一次，之后所有行回显同一个值。
type Loop struct {
	cfg       LoopConfig
	src       FrameSource
	rec       *recorder.CSVRecorder
	publisher SamplePublisher
	logger    *zap.Logger

	enterTime *float64 // 第一次 in-range presence 的相对时间，设置一次后不再改
	now       func() time.Time
}

// NewLoop 创建雷达采集循环
func NewLoop(cfg LoopConfig, src FrameSource, rec *recorder.CSVRecorder, publisher SamplePublisher, logger *zap.Logger) *Loop {
	return &Loop{
		cfg:       cfg,
		src:       src,
		rec:       rec,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// EnterTime 已记录的进入时间（未记录返回 nil）
func (l *Loop) EnterTime() *float64 {
	return l.enterTime
}

// Run 运行采集循环直到 ctx 取消或帧来源结束
//
// 帧来源返回 ErrProcessStopped 时按 session 正常结束处理；
// 单帧的瞬时读取错误只记日志并跳过。
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Radar loop interrupted", zap.Int("rows", l.rec.Rows()))
			return nil
		default:
		}

		frame, err := l.src.Next()
		if err != nil {
			if errors.Is(err, ErrProcessStopped) {
				l.logger.Info("Ref-app process stopped, ending session",
					zap.Int("rows", l.rec.Rows()),
				)
				return nil
			}
			l.logger.Warn("Frame read failed, skipping", zap.Error(err))
			continue
		}

		unixTime := float64(l.now().UnixNano()) / 1e9
		currentTime := unixTime - l.cfg.SessionStartUnix

		if err := l.handleFrame(frame, currentTime, unixTime); err != nil {
			return err
		}
	}
}

func (l *Loop) handleFrame(frame *ProcessedFrame, currentTime, unixTime float64) error {
	quality := Classify(frame)

	presenceDetected := ""
	presenceDistance := ""
	intraScore := ""
	interScore := ""
	distanceIndex := ""

	if pres := frame.PresenceResult; pres != nil {
		presenceDetected = strconv.FormatBool(pres.PresenceDetected)
		presenceDistance = formatFloat(pres.PresenceDistance, 3)
		intraScore = formatFloat(pres.IntraPresenceScore, 3)
		interScore = formatFloat(pres.InterPresenceScore, 3)
		if pres.PresenceDistanceIndex != nil {
			distanceIndex = strconv.Itoa(*pres.PresenceDistanceIndex)
		}

		// 还没记录过进入时间，且 presence 距离落在目标窗口内 → 记录（只记一次）
		if l.enterTime == nil && pres.PresenceDetected &&
			pres.PresenceDistance >= l.cfg.EnterDistanceMinM &&
			pres.PresenceDistance <= l.cfg.EnterDistanceMaxM {
			t := currentTime
			l.enterTime = &t
			l.logger.Info("Radar enter time marked",
				zap.Float64("enter_time_s", t),
				zap.Float64("distance_m", pres.PresenceDistance),
			)
		}
	}

	breathRate := ""
	switch quality {
	case QualityBreathing:
		breathRate = formatFloat(*frame.BreathingResult.BreathingRate, 2)
		l.logger.Info("Breathing rate",
			zap.Float64("t_s", currentTime),
			zap.String("bpm", breathRate),
		)
	case QualityBreathingNoRate:
		l.logger.Info("Calculating respiration rate...", zap.Float64("t_s", currentTime))
	case QualityPresenceOnly:
		l.logger.Info("Presence detected, no breathing yet", zap.Float64("t_s", currentTime))
	default:
		l.logger.Info("No presence", zap.Float64("t_s", currentTime))
	}

	enterTime := ""
	if l.enterTime != nil {
		enterTime = formatFloat(*l.enterTime, 3)
	}

	row := []string{
		formatFloat(currentTime, 3),
		formatFloat(unixTime, 3),
		string(quality),
		breathRate,
		frame.AppState,
		frame.DistancesBeingAnalyzed,
		presenceDetected,
		presenceDistance,
		intraScore,
		interScore,
		distanceIndex,
		enterTime,
	}
	if err := l.rec.WriteRow(row); err != nil {
		return err
	}

	l.publishSample(row, quality, currentTime, unixTime)
	return nil
}

// radarSampleMsg MQTT 实时样本的载荷
type radarSampleMsg struct {
	Timestamp     float64 `json:"timestamp"`
	UnixTime      float64 `json:"unix_time"`
	QualityFlag   string  `json:"quality_flag"`
	BreathRateBPM string  `json:"breath_rate_bpm,omitempty"`
	EnterTime     string  `json:"radar_enter_time,omitempty"`
}

func (l *Loop) publishSample(row []string, quality Quality, currentTime, unixTime float64) {
	if l.publisher == nil {
		return
	}
	msg := radarSampleMsg{
		Timestamp:     currentTime,
		UnixTime:      unixTime,
		QualityFlag:   string(quality),
		BreathRateBPM: row[3],
		EnterTime:     row[11],
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		l.logger.Warn("Marshal sample failed", zap.Error(err))
		return
	}
	if err := l.publisher.PublishSample(payload); err != nil {
		// 发布失败不影响采集
		l.logger.Warn("Publish sample failed", zap.Error(err))
	}
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
