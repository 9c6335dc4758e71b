package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventTypeCodeIssued is the event_type header of published notifications.
const EventTypeCodeIssued = "identity.code_issued"

// CodeEvent is the JSON payload published for each notification.
type CodeEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	UserID     string    `json:"user_id"`
	Channel    string    `json:"channel"`
	Address    string    `json:"address"`
	Purpose    string    `json:"purpose"`
	Code       string    `json:"code"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures KafkaSender.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// KafkaSender publishes notifications to a Kafka topic keyed by user ID, so
// codes for one user stay ordered within a partition.
type KafkaSender struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
	now    func() time.Time
}

// NewKafkaSender returns a sender with a synchronous kafka-go writer.
func NewKafkaSender(cfg KafkaConfig, logger *zap.Logger) (*KafkaSender, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic is required")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return newKafkaSender(w, cfg.Topic, logger), nil
}

func newKafkaSender(w messageWriter, topic string, logger *zap.Logger) *KafkaSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSender{writer: w, topic: topic, logger: logger.Named("notify"), now: time.Now}
}

// SendCode implements goIdentity.NotificationSender.
func (s *KafkaSender) SendCode(ctx context.Context, n goIdentity.Notification) error {
	event := CodeEvent{
		EventID:    uuid.NewString(),
		EventType:  EventTypeCodeIssued,
		UserID:     n.UserID,
		Channel:    string(n.Channel),
		Address:    n.Address,
		Purpose:    string(n.Purpose),
		Code:       n.Code,
		OccurredAt: s.now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal code event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(n.UserID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeCodeIssued)},
			{Key: "purpose", Value: []byte(n.Purpose)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish code event to %s: %w", s.topic, err)
	}

	s.logger.Debug("code event published",
		zap.String("topic", s.topic),
		zap.String("event_id", event.EventID),
		zap.String("user_id", n.UserID),
	)
	return nil
}

// Close flushes and closes the writer.
func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
