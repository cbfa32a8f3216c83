// Package session 管理一次实验 session 的共享时间起点和目录
//
// 同一个 session 下雷达和呼吸带两个采集进程共享一个 Unix 起始时间
// （session_start_unix.txt），各自的相对时间戳才有可比性。
// 文件由 session-start 写一次，之后只读，不需要加锁。
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// StartFileName session 起始时间文件（单个浮点 Unix 秒）
	StartFileName = "session_start_unix.txt"
	// EnterTimeFileName 人工记录的进入时间文件（可选，分析时参考用）
	EnterTimeFileName = "human_enter_time.txt"
	// MetaFileName session 元信息文件
	MetaFileName = "session_meta.yaml"
)

// Meta session 元信息
type Meta struct {
	SessionID string  `yaml:"session_id"`
	StartUnix float64 `yaml:"start_unix"`
	Note      string  `yaml:"note,omitempty"`
}

// NewDir 在 base 下创建 session 目录：session_YYYYMMDD_HHMMSS
func NewDir(base string) (string, error) {
	name := fmt.Sprintf("session_%s", time.Now().Format("20060102_150405"))
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return dir, nil
}

// WriteStartTime 写 session 起始时间文件（覆盖写，一个 session 只写一次）
func WriteStartTime(dir string, t time.Time) error {
	startUnix := float64(t.UnixNano()) / 1e9
	content := strconv.FormatFloat(startUnix, 'f', 6, 64)
	path := filepath.Join(dir, StartFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", StartFileName, err)
	}
	return nil
}

// WriteMeta 写 session 元信息（带随机 session ID）
func WriteMeta(dir string, startUnix float64, note string) (*Meta, error) {
	meta := &Meta{
		SessionID: uuid.NewString(),
		StartUnix: startUnix,
		Note:      note,
	}
	data, err := yaml.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal session meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetaFileName), data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", MetaFileName, err)
	}
	return meta, nil
}

// ResolveStartTime 读取 session 起始时间
//
// 文件不存在或内容无效时退回到当前时间（单独跑某个采集脚本时的情况），
// 打一条 warning 但不报错。
func ResolveStartTime(dir string, logger *zap.Logger) float64 {
	path := filepath.Join(dir, StartFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		now := float64(time.Now().UnixNano()) / 1e9
		logger.Warn("No session start file, falling back to current time",
			zap.String("path", path),
			zap.Float64("start_unix", now),
		)
		return now
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		now := float64(time.Now().UnixNano()) / 1e9
		logger.Warn("Invalid session start file, falling back to current time",
			zap.String("path", path),
			zap.Error(err),
		)
		return now
	}

	logger.Info("Using session start time from file",
		zap.String("path", path),
		zap.Float64("start_unix", v),
	)
	return v
}

// ReadEnterTime 读取人工进入时间（可选文件），无效或不存在返回 nil
func ReadEnterTime(dir string) *float64 {
	data, err := os.ReadFile(filepath.Join(dir, EnterTimeFileName))
	if err != nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return nil
	}
	return &v
}
