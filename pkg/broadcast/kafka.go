package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes every rate update as one JSON message to a topic.
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

// NewKafkaWriter constructs a kafka.Writer compatible with kafka-go v0.4.x.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Dialer:       dialer,
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{w: NewKafkaWriter(brokers, topic), topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, u RateUpdate) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal rate update: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(u.Type),
		Value: b,
		Time:  time.UnixMilli(u.Timestamp),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", p.topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

// EnsureTopic attempts to create the topic. Failure is logged, not returned,
// since the topic usually exists already.
func EnsureTopic(ctx context.Context, broker, topic string, logger *zap.SugaredLogger) {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		logger.Warnw("kafka_dial_failed", "broker", broker, "err", err)
		return
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Infow("kafka_create_topic", "topic", topic, "err", err)
	}
}
