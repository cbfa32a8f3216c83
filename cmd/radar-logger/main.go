// radar-logger XM125 breathing ref-app 采集进程
//
// 逐帧拉取 ref-app 结果写入 <prefix>_radar.csv，Ctrl-C 结束 session。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/config"
	"github.com/MindyZHAOMinzhu/xm125/internal/device/xm125"
	"github.com/MindyZHAOMinzhu/xm125/internal/logger"
	"github.com/MindyZHAOMinzhu/xm125/internal/publish"
	"github.com/MindyZHAOMinzhu/xm125/internal/radar"
	"github.com/MindyZHAOMinzhu/xm125/internal/recorder"
	"github.com/MindyZHAOMinzhu/xm125/internal/session"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	sessionDir := flag.String("session-dir", ".", "session directory (shared start time + output)")
	prefix := flag.String("prefix", "", "output filename prefix (without extension)")
	flag.Parse()

	cfg := config.Load()
	if *configPath != "" {
		if err := cfg.ApplyFile(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	zlog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "radar-logger")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	sessionStart := session.ResolveStartTime(*sessionDir, zlog)

	filenamePrefix := *prefix
	if filenamePrefix == "" {
		filenamePrefix = fmt.Sprintf("xm125_session_%s", time.Now().Format("20060102_150405"))
	}
	csvPath := filepath.Join(*sessionDir, filenamePrefix+"_radar.csv")

	client, err := xm125.Open(&cfg.Radar, zlog)
	if err != nil {
		zlog.Fatal("Failed to open radar", zap.Error(err))
	}
	defer func() {
		zlog.Info("Disconnecting...")
		if err := client.Close(); err != nil {
			zlog.Warn("Radar close error", zap.Error(err))
		}
	}()

	rec, err := recorder.NewCSVRecorder(csvPath, radar.CSVHeader)
	if err != nil {
		zlog.Fatal("Failed to create radar CSV", zap.Error(err))
	}
	defer rec.Close()
	zlog.Info("Radar CSV will be saved", zap.String("path", csvPath))

	var publisher radar.SamplePublisher
	if cfg.MQTT.Enabled {
		topic := fmt.Sprintf("%s/%s/radar", cfg.MQTT.TopicBase, filepath.Base(*sessionDir))
		p, err := publish.NewPublisher(&cfg.MQTT, topic, zlog)
		if err != nil {
			// 旁路观测挂了不挡采集
			zlog.Warn("MQTT publisher unavailable, continuing without it", zap.Error(err))
		} else {
			publisher = p
			defer p.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Info("Press Ctrl-C to end session")

	loop := radar.NewLoop(radar.LoopConfig{
		EnterDistanceMinM: cfg.Radar.EnterDistanceMinM,
		EnterDistanceMaxM: cfg.Radar.EnterDistanceMaxM,
		SessionStartUnix:  sessionStart,
	}, client, rec, publisher, zlog)

	if err := loop.Run(ctx); err != nil {
		zlog.Error("Radar loop failed", zap.Error(err))
		os.Exit(1)
	}

	zlog.Info("Done", zap.Int("rows", rec.Rows()), zap.String("csv", csvPath))
}
