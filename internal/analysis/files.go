// Package analysis 实现单个 session 的离线对齐与可行性指标计算
//
// 输入是采集阶段落盘的两个 CSV（雷达、呼吸带），
// 按时间戳做最近邻 asof 对齐后计算误差/相关性/冷启动等指标。
package analysis

import (
	"fmt"
	"path/filepath"

	"github.com/MindyZHAOMinzhu/xm125/internal/session"
)

// Files 一个 session 目录里找到的输入文件
type Files struct {
	RadarCSV string
	BeltCSV  string
	// HumanEnterUnix 人工记录的进入时间（human_enter_time.txt），没有或无效为 nil
	HumanEnterUnix *float64
}

// FindSessionFiles 在 session 目录里找 radar/belt CSV 和进入时间文件
//
// 命名约定：*_radar.csv / *_belt.csv，各取匹配到的第一个。
// 两个 CSV 任一缺失都是致命错误，错误信息里带上没找到的文件模式。
func FindSessionFiles(dir string) (*Files, error) {
	radarCSVs, err := filepath.Glob(filepath.Join(dir, "*_radar.csv"))
	if err != nil {
		return nil, fmt.Errorf("scan session dir: %w", err)
	}
	if len(radarCSVs) == 0 {
		return nil, fmt.Errorf("no *_radar.csv found in %s", dir)
	}

	beltCSVs, err := filepath.Glob(filepath.Join(dir, "*_belt.csv"))
	if err != nil {
		return nil, fmt.Errorf("scan session dir: %w", err)
	}
	if len(beltCSVs) == 0 {
		return nil, fmt.Errorf("no *_belt.csv found in %s", dir)
	}

	return &Files{
		RadarCSV:       radarCSVs[0],
		BeltCSV:        beltCSVs[0],
		HumanEnterUnix: session.ReadEnterTime(dir),
	}, nil
}
