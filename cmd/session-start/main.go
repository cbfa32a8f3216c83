// session-start 创建一个新的实验 session
//
// 建好 session 目录，写入共享的起始时间文件和元信息，
// 然后把目录路径打到标准输出，方便脚本接着启动两个采集进程。
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/config"
	"github.com/MindyZHAOMinzhu/xm125/internal/logger"
	"github.com/MindyZHAOMinzhu/xm125/internal/session"
)

func main() {
	baseDir := flag.String("dir", ".", "base directory for session folders")
	note := flag.String("note", "", "optional note stored in session metadata")
	flag.Parse()

	cfg := config.Load()
	zlog, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "session-start")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	dir, err := session.NewDir(*baseDir)
	if err != nil {
		zlog.Fatal("Failed to create session dir", zap.Error(err))
	}

	start := time.Now()
	if err := session.WriteStartTime(dir, start); err != nil {
		zlog.Fatal("Failed to write session start time", zap.Error(err))
	}

	startUnix := float64(start.UnixNano()) / 1e9
	meta, err := session.WriteMeta(dir, startUnix, *note)
	if err != nil {
		zlog.Fatal("Failed to write session metadata", zap.Error(err))
	}

	zlog.Info("Session created",
		zap.String("dir", dir),
		zap.String("session_id", meta.SessionID),
		zap.Float64("start_unix", startUnix),
	)

	fmt.Println(dir)
}
