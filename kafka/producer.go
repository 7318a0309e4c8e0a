package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes storefront events to Kafka. It satisfies the same
// Publish(ctx, topic, message) contract as the SNS client.
type Producer struct {
	writer messageWriter
	logger *zap.Logger
}

func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           10 * time.Second,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
	}
	logger.Info("Kafka producer initialized", zap.Strings("brokers", brokers))
	return &Producer{writer: w, logger: logger}
}

// Publish writes one message to topic.
func (p *Producer) Publish(ctx context.Context, topic string, message []byte) error {
	if topic == "" {
		return fmt.Errorf("empty kafka topic")
	}
	msg := kafka.Message{
		Topic: topic,
		Value: message,
		Time:  time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish failed for topic %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	p.logger.Info("Closing Kafka producer")
	return p.writer.Close()
}
