// belt-logger GDX-RB 呼吸带采集进程
//
// 按固定节拍轮询呼吸带写入 <prefix>_belt.csv。
//
// 退出码约定（供 session 脚本检测）：
//
//	0  正常结束
//	1  设备打开失败
//	2  设备连上了但宽限时间内一直没有数据
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/belt"
	"github.com/MindyZHAOMinzhu/xm125/internal/config"
	"github.com/MindyZHAOMinzhu/xm125/internal/device/gdx"
	"github.com/MindyZHAOMinzhu/xm125/internal/logger"
	"github.com/MindyZHAOMinzhu/xm125/internal/publish"
	"github.com/MindyZHAOMinzhu/xm125/internal/recorder"
	"github.com/MindyZHAOMinzhu/xm125/internal/session"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	sessionDir := flag.String("session-dir", ".", "session directory (shared start time + output)")
	out := flag.String("out", "", "output CSV filename (e.g., belt_log.csv)")
	durationS := flag.Float64("duration-s", 0, "override collection duration in seconds")
	intervalS := flag.Float64("interval-s", 0, "override sample interval in seconds")
	flag.Parse()

	cfg := config.Load()
	if *configPath != "" {
		if err := cfg.ApplyFile(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *durationS > 0 {
		cfg.Belt.DurationS = *durationS
	}
	if *intervalS > 0 {
		cfg.Belt.SampleIntervalS = *intervalS
	}

	zlog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "belt-logger")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	sessionStart := session.ResolveStartTime(*sessionDir, zlog)

	csvName := *out
	if csvName == "" {
		csvName = fmt.Sprintf("belt_log_%s_belt.csv", time.Now().Format("20060102_150405"))
	}
	csvPath := filepath.Join(*sessionDir, csvName)

	rec, err := recorder.NewCSVRecorder(csvPath, belt.CSVHeader)
	if err != nil {
		zlog.Fatal("Failed to create belt CSV", zap.Error(err))
	}
	defer rec.Close()
	zlog.Info("Belt CSV will be saved", zap.String("path", csvPath))

	var publisher belt.SamplePublisher
	if cfg.MQTT.Enabled {
		topic := fmt.Sprintf("%s/%s/belt", cfg.MQTT.TopicBase, filepath.Base(*sessionDir))
		p, err := publish.NewPublisher(&cfg.MQTT, topic, zlog)
		if err != nil {
			zlog.Warn("MQTT publisher unavailable, continuing without it", zap.Error(err))
		} else {
			publisher = p
			defer p.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := belt.NewLoop(belt.LoopConfig{
		SampleInterval:   time.Duration(cfg.Belt.SampleIntervalS * float64(time.Second)),
		Duration:         time.Duration(cfg.Belt.DurationS * float64(time.Second)),
		NoDataGrace:      time.Duration(cfg.Belt.NoDataTimeoutS * float64(time.Second)),
		SessionStartUnix: sessionStart,
	}, gdx.NewDriver(&cfg.Belt, zlog), rec, publisher, zlog)

	err = loop.Run(ctx)
	switch {
	case err == nil:
		zlog.Info("Saved data", zap.String("csv", csvPath))
	case errors.Is(err, belt.ErrNoData):
		zlog.Error("Belt produced no data", zap.Error(err))
		os.Exit(2)
	default:
		// 打开失败和其它致命错误都算连接/配置问题
		zlog.Error("Belt collection failed", zap.Error(err))
		os.Exit(1)
	}
}
