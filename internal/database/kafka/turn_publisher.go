package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Mimic_1.0/internal/models"

	"github.com/segmentio/kafka-go"
)

const TurnEventTopic = "persona_turns"

// TurnEvent 是每完成一轮对话后发布到 Kafka 的事件。
type TurnEvent struct {
	TraceID   string              `json:"trace_id"`
	SessionID string              `json:"session_id"`
	UserID    string              `json:"user_id"`
	Persona   string              `json:"persona"`
	Revised   bool                `json:"revised"`
	Citations []string            `json:"citations"`
	Scores    *models.JudgeScores `json:"scores,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// TurnPublisher 封装了向 Kafka 发送回合事件的逻辑。
type TurnPublisher struct {
	writer *kafka.Writer
}

// NewTurnPublisher 创建一个新的 TurnPublisher 实例。
func NewTurnPublisher(client *KafkaClient) *TurnPublisher {
	// 为回合事件主题创建一个新的 writer 实例配置
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      client.Config.Brokers,
		Topic:        TurnEventTopic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	})
	return &TurnPublisher{writer: writer}
}

// PublishTurn 将 TurnEvent 序列化为 JSON 并发送到 Kafka。
func (p *TurnPublisher) PublishTurn(ctx context.Context, event *TurnEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID),
		Value: jsonData,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close 关闭底层的 writer 连接。
func (p *TurnPublisher) Close() error {
	return p.writer.Close()
}
