// Package publish 提供可选的实时样本 MQTT 发布
//
// 采集现场在另一台机器上盯 session 时用：每条样本发布为一条 JSON 消息，
// 主题为 <topic_base>/<session>/<radar|belt>。发布失败只影响旁路观测，
// 不影响落盘。
package publish

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MindyZHAOMinzhu/xm125/internal/config"
)

// Publisher 绑定到单个主题的 MQTT 发布器
type Publisher struct {
	client mqtt.Client
	topic  string
	qos    byte
	logger *zap.Logger
}

// NewPublisher 连接 broker 并创建发布器
//
// topic 如 "feasibility/session_20251211_121123/radar"。
// client ID 加随机后缀，雷达和呼吸带两个进程不会互踢。
func NewPublisher(cfg *config.MQTTConfig, topic string, logger *zap.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8]))

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Info("MQTT publisher connected",
		zap.String("broker", cfg.Broker),
		zap.String("topic", topic),
	)

	return &Publisher{
		client: client,
		topic:  topic,
		qos:    cfg.QoS,
		logger: logger,
	}, nil
}

// PublishSample 发布一条样本
func (p *Publisher) PublishSample(payload []byte) error {
	token := p.client.Publish(p.topic, p.qos, false, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", p.topic, token.Error())
	}
	return nil
}

// Close 断开连接
func (p *Publisher) Close() {
	p.client.Disconnect(250) // 250ms等待时间
}
