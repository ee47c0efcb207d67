package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"garment-dashboard/internal/service"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultTopic carries every order event
const DefaultTopic = "order-events"

const publishTimeout = 10 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the wire form of an order event
type Envelope struct {
	EventID string `json:"event_id"`
	service.OrderEventMessage
}

// KafkaPublisher publishes order events keyed by order so one order's events stay
// on one partition in order.
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, logger), nil
}

func newKafkaPublisher(writer messageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish writes one event. The write outlives a cancelled request but not the
// publish timeout.
func (p *KafkaPublisher) Publish(ctx context.Context, msg service.OrderEventMessage) error {
	env := Envelope{EventID: uuid.New().String(), OrderEventMessage: msg}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte("ORDER#" + msg.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Type)},
		},
		Time: msg.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s for order %s: %w", msg.Type, msg.OrderID, err)
	}

	p.logger.Debug("order event published",
		zap.String("event_id", env.EventID),
		zap.String("type", msg.Type),
		zap.String("order_id", msg.OrderID))
	return nil
}

// Close flushes pending writes
func (p *KafkaPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// HealthCheck dials broker
func HealthCheck(ctx context.Context, broker string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("kafka broker %s unreachable: %w", broker, err)
	}
	return conn.Close()
}
