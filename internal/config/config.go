package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RadarConfig 雷达采集配置
//
// 距离参数对应 XM125 breathing ref-app 的配置：
// - StartM/EndM: 分析的距离区间（人大概 0.4–0.7 m）
// - EnterDistanceMinM/EnterDistanceMaxM: 判定"人进入"的距离窗口（可以按实验改）
type RadarConfig struct {
	SerialPort string `yaml:"serial_port"`
	Baudrate   int    `yaml:"baudrate"`

	StartM                float64 `yaml:"start_m"`
	EndM                  float64 `yaml:"end_m"`
	EnterDistanceMinM     float64 `yaml:"enter_distance_min_m"`
	EnterDistanceMaxM     float64 `yaml:"enter_distance_max_m"`
	NumDistancesToAnalyze int     `yaml:"num_distances_to_analyze"`
	DistanceDeterminationS int    `yaml:"distance_determination_duration_s"`

	LowestBreathingRate  int `yaml:"lowest_breathing_rate"`
	HighestBreathingRate int `yaml:"highest_breathing_rate"`
	TimeSeriesLengthS    int `yaml:"time_series_length_s"`
	SweepsPerFrame       int `yaml:"sweeps_per_frame"`
	Profile              int `yaml:"profile"`
}

// BeltConfig 呼吸带采集配置
type BeltConfig struct {
	SerialPort string `yaml:"serial_port"`
	Baudrate   int    `yaml:"baudrate"`
	Channel    int    `yaml:"channel"` // GDX-RB 通道：1-Force; 2-respiratory rate (bpm)

	SampleIntervalS float64 `yaml:"sample_interval_s"`
	DurationS       float64 `yaml:"duration_s"`
	NoDataTimeoutS  float64 `yaml:"no_data_timeout_s"` // 启动后一直没有数据的判失败时限
}

// MQTTConfig MQTT配置（可选的实时样本发布，方便远程盯 session）
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      byte   `yaml:"qos"`
	TopicBase string `yaml:"topic_base"` // 如 "feasibility"，实际主题为 <base>/<session>/<radar|belt>
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config 采集与分析工具共享的配置
type Config struct {
	Radar RadarConfig `yaml:"radar"`
	Belt  BeltConfig  `yaml:"belt"`
	MQTT  MQTTConfig  `yaml:"mqtt"`
	Log   LogConfig   `yaml:"log"`
}

// Load 加载配置（环境变量 + 默认值）
func Load() *Config {
	cfg := &Config{}

	cfg.Radar.SerialPort = getEnv("RADAR_SERIAL_PORT", "/dev/ttyUSB0")
	cfg.Radar.Baudrate = getEnvInt("RADAR_BAUDRATE", 115200) // 稳定优先
	cfg.Radar.StartM = getEnvFloat("RADAR_START_M", 0.4)
	cfg.Radar.EndM = getEnvFloat("RADAR_END_M", 0.7)
	cfg.Radar.EnterDistanceMinM = getEnvFloat("RADAR_ENTER_MIN_M", 0.4)
	cfg.Radar.EnterDistanceMaxM = getEnvFloat("RADAR_ENTER_MAX_M", 0.7)
	cfg.Radar.NumDistancesToAnalyze = getEnvInt("RADAR_NUM_DISTANCES", 3)
	cfg.Radar.DistanceDeterminationS = getEnvInt("RADAR_DISTANCE_DETERMINATION_S", 5)
	cfg.Radar.LowestBreathingRate = getEnvInt("RADAR_LOWEST_BPM", 8)
	cfg.Radar.HighestBreathingRate = getEnvInt("RADAR_HIGHEST_BPM", 30)
	cfg.Radar.TimeSeriesLengthS = getEnvInt("RADAR_TIME_SERIES_LENGTH_S", 15) // 和 cold start 直接相关
	cfg.Radar.SweepsPerFrame = getEnvInt("RADAR_SWEEPS_PER_FRAME", 16)
	cfg.Radar.Profile = getEnvInt("RADAR_PROFILE", 5) // 高频分辨率更高，适合近场小运动

	cfg.Belt.SerialPort = getEnv("BELT_SERIAL_PORT", "/dev/ttyACM0")
	cfg.Belt.Baudrate = getEnvInt("BELT_BAUDRATE", 115200)
	cfg.Belt.Channel = getEnvInt("BELT_CHANNEL", 2)
	cfg.Belt.SampleIntervalS = getEnvFloat("BELT_SAMPLE_INTERVAL_S", 1)
	cfg.Belt.DurationS = getEnvFloat("BELT_DURATION_S", 300)
	cfg.Belt.NoDataTimeoutS = getEnvFloat("BELT_NO_DATA_TIMEOUT_S", 8)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "xm125-feasibility")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 0))
	cfg.MQTT.TopicBase = getEnv("MQTT_TOPIC_BASE", "feasibility")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "console")

	return cfg
}

// ApplyFile 从 YAML 文件覆盖配置（只覆盖文件里出现的键）
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		v := defaultValue
		fmt.Sscanf(value, "%d", &v)
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		v := defaultValue
		fmt.Sscanf(value, "%g", &v)
		return v
	}
	return defaultValue
}
