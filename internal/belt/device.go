// Package belt 实现 GDX-RB 呼吸带的定时采集循环
//
// 呼吸率在呼吸带设备上计算，这里只按固定节拍轮询读数并落 CSV。
package belt

import (
	"errors"
	"time"
)

var (
	// ErrDeviceOpen 设备打开失败（对应采集进程退出码 1）
	ErrDeviceOpen = errors.New("belt device open failed")
	// ErrNoData 启动后超过宽限时间一直没有任何读数（对应退出码 2）
	// 用来区分"连不上"和"连上了但一直不出数"
	ErrNoData = errors.New("no belt data within startup grace period")
	// ErrNoReading 本次轮询设备没有返回读数（瞬时情况，循环继续）
	ErrNoReading = errors.New("no reading available")
)

// Reading 一次呼吸带读数
type Reading struct {
	BPM float64
}

// Device 呼吸带设备驱动（真机是串口后面的 GDX-RB，单元测试用 fake）
type Device interface {
	// Open 打开设备连接
	Open() error
	// Start 以给定周期开始采样
	Start(period time.Duration) error
	// Read 读取当前读数；本次没有数据时返回 ErrNoReading
	Read() (*Reading, error)
	// Stop 停止采样
	Stop() error
	// Close 关闭连接
	Close() error
}
