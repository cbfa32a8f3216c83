// Package xm125 是 XM125 breathing ref-app 固件的串口客户端
//
// 模组固件负责全部信号处理（presence + 呼吸率估计），
// 配置用一条 JSON 命令写入，之后每处理完一帧输出一行 JSON 结果。
// 这里只做传输层：发配置、逐行读结果、解码。
package xm125

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tarm/serial"
	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/config"
	"github.com/MindyZHAOMinzhu/xm125/internal/radar"
)

// setupCommand ref-app 配置命令
type setupCommand struct {
	Cmd                           string  `json:"cmd"`
	StartM                        float64 `json:"start_m"`
	EndM                          float64 `json:"end_m"`
	NumDistancesToAnalyze         int     `json:"num_distances_to_analyze"`
	DistanceDeterminationDuration int     `json:"distance_determination_duration"`
	LowestBreathingRate           int     `json:"lowest_breathing_rate"`
	HighestBreathingRate          int     `json:"highest_breathing_rate"`
	TimeSeriesLengthS             int     `json:"time_series_length_s"`
	SweepsPerFrame                int     `json:"sweeps_per_frame"`
	Profile                       int     `json:"profile"`
	UsePresenceProcessor          bool    `json:"use_presence_processor"`
}

// wireFrame ref-app 每帧输出的 JSON 行
type wireFrame struct {
	AppState               string    `json:"app_state"`
	DistancesBeingAnalyzed []float64 `json:"distances_being_analyzed"`

	BreathingResult *struct {
		BreathingRate *float64 `json:"breathing_rate"`
	} `json:"breathing_result"`

	PresenceResult *struct {
		PresenceDetected      bool     `json:"presence_detected"`
		PresenceDistance      float64  `json:"presence_distance"`
		IntraPresenceScore    float64  `json:"intra_presence_score"`
		InterPresenceScore    float64  `json:"inter_presence_score"`
		PresenceDistanceIndex *int     `json:"presence_distance_index"`
	} `json:"presence_result"`
}

// Client XM125 串口客户端，实现 radar.FrameSource
type Client struct {
	port    *serial.Port
	scanner *bufio.Scanner
	logger  *zap.Logger
}

// Open 打开串口、写入 ref-app 配置并开始 session
func Open(cfg *config.RadarConfig, logger *zap.Logger) (*Client, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name: cfg.SerialPort,
		Baud: cfg.Baudrate,
	})
	if err != nil {
		return nil, fmt.Errorf("open radar serial port %s: %w", cfg.SerialPort, err)
	}

	c := &Client{
		port:    port,
		scanner: bufio.NewScanner(port),
		logger:  logger,
	}
	// 一帧的 JSON 行可能比默认缓冲长
	c.scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	setup := setupCommand{
		Cmd:                           "setup_breathing",
		StartM:                        cfg.StartM,
		EndM:                          cfg.EndM,
		NumDistancesToAnalyze:         cfg.NumDistancesToAnalyze,
		DistanceDeterminationDuration: cfg.DistanceDeterminationS,
		LowestBreathingRate:           cfg.LowestBreathingRate,
		HighestBreathingRate:          cfg.HighestBreathingRate,
		TimeSeriesLengthS:             cfg.TimeSeriesLengthS,
		SweepsPerFrame:                cfg.SweepsPerFrame,
		Profile:                       cfg.Profile,
		UsePresenceProcessor:          true,
	}
	if err := c.send(setup); err != nil {
		port.Close()
		return nil, fmt.Errorf("setup ref-app session: %w", err)
	}
	if err := c.send(map[string]string{"cmd": "start_session"}); err != nil {
		port.Close()
		return nil, fmt.Errorf("start ref-app session: %w", err)
	}

	logger.Info("Connected to XM125",
		zap.String("port", cfg.SerialPort),
		zap.Int("baudrate", cfg.Baudrate),
	)
	return c, nil
}

func (c *Client) send(cmd any) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	if _, err := c.port.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// Next 读取下一帧处理结果
//
// 串口流结束（固件侧进程退出）时返回 radar.ErrProcessStopped。
func (c *Client) Next() (*radar.ProcessedFrame, error) {
	for {
		if !c.scanner.Scan() {
			if err := c.scanner.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("read radar frame: %w", err)
			}
			return nil, radar.ErrProcessStopped
		}
		line := strings.TrimSpace(c.scanner.Text())
		if line == "" {
			continue
		}

		var wf wireFrame
		if err := json.Unmarshal([]byte(line), &wf); err != nil {
			return nil, fmt.Errorf("decode radar frame: %w", err)
		}
		return wf.toFrame(), nil
	}
}

func (wf *wireFrame) toFrame() *radar.ProcessedFrame {
	frame := &radar.ProcessedFrame{
		AppState:               wf.AppState,
		DistancesBeingAnalyzed: formatDistances(wf.DistancesBeingAnalyzed),
	}
	if wf.BreathingResult != nil {
		frame.BreathingResult = &radar.BreathingResult{
			BreathingRate: wf.BreathingResult.BreathingRate,
		}
	}
	if wf.PresenceResult != nil {
		frame.PresenceResult = &radar.PresenceResult{
			PresenceDetected:      wf.PresenceResult.PresenceDetected,
			PresenceDistance:      wf.PresenceResult.PresenceDistance,
			IntraPresenceScore:    wf.PresenceResult.IntraPresenceScore,
			InterPresenceScore:    wf.PresenceResult.InterPresenceScore,
			PresenceDistanceIndex: wf.PresenceResult.PresenceDistanceIndex,
		}
	}
	return frame
}

func formatDistances(ds []float64) string {
	if len(ds) == 0 {
		return ""
	}
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = fmt.Sprintf("%.3f", d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Close 停止 session 并关闭串口
func (c *Client) Close() error {
	// 尽力通知固件停止，失败也继续关串口
	if err := c.send(map[string]string{"cmd": "stop_session"}); err != nil {
		c.logger.Warn("Stop session command failed", zap.Error(err))
	}
	return c.port.Close()
}
