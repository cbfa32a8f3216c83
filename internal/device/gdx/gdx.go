// Package gdx 是 Vernier GDX-RB 呼吸带的串口驱动
//
// 设备在板上计算呼吸率，通过 USB 串口以 ASCII 行协议交互：
// 选通道、按周期开始采样，然后每个采样周期输出一行数值。
// 实现 belt.Device 接口。
package gdx

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tarm/serial"
	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/belt"
	"github.com/MindyZHAOMinzhu/xm125/internal/config"
)

// Driver GDX-RB 串口驱动
type Driver struct {
	cfg    *config.BeltConfig
	logger *zap.Logger

	port   *serial.Port
	reader *bufio.Reader
}

// NewDriver 创建驱动（还不打开设备，Open 时才连）
func NewDriver(cfg *config.BeltConfig, logger *zap.Logger) *Driver {
	return &Driver{cfg: cfg, logger: logger}
}

// Open 打开串口并选择测量通道
func (d *Driver) Open() error {
	port, err := serial.OpenPort(&serial.Config{
		Name: d.cfg.SerialPort,
		Baud: d.cfg.Baudrate,
		// 读超时要小于采样周期，单次无数据不能卡死整个 tick
		ReadTimeout: 500 * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("open belt serial port %s: %w", d.cfg.SerialPort, err)
	}
	d.port = port
	d.reader = bufio.NewReader(port)

	if err := d.command(fmt.Sprintf("select %d", d.cfg.Channel)); err != nil {
		port.Close()
		d.port = nil
		return fmt.Errorf("select channel %d: %w", d.cfg.Channel, err)
	}

	d.logger.Info("GDX-RB opened",
		zap.String("port", d.cfg.SerialPort),
		zap.Int("channel", d.cfg.Channel),
	)
	return nil
}

// Start 以给定周期开始采样
func (d *Driver) Start(period time.Duration) error {
	return d.command(fmt.Sprintf("start %d", period.Milliseconds()))
}

// Read 读取当前读数
//
// 超时或读到非数值行时返回 belt.ErrNoReading（瞬时情况，调用方继续轮询）。
func (d *Driver) Read() (*belt.Reading, error) {
	line, err := d.reader.ReadString('\n')
	if err != nil {
		// 串口读超时表现为空读，按"本次没数据"处理
		if line == "" {
			return nil, belt.ErrNoReading
		}
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, belt.ErrNoReading
	}

	// 行格式：单个数值（选中的通道的当前值）
	bpm, err := strconv.ParseFloat(line, 64)
	if err != nil {
		d.logger.Debug("Unparseable belt line", zap.String("line", line))
		return nil, belt.ErrNoReading
	}
	return &belt.Reading{BPM: bpm}, nil
}

// Stop 停止采样
func (d *Driver) Stop() error {
	if d.port == nil {
		return nil
	}
	return d.command("stop")
}

// Close 关闭串口
func (d *Driver) Close() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	return err
}

func (d *Driver) command(cmd string) error {
	if d.port == nil {
		return fmt.Errorf("belt device not open")
	}
	if _, err := d.port.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("write command %q: %w", cmd, err)
	}
	return nil
}
