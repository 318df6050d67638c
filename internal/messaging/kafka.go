package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/affinity/internal/config"
	"github.com/temcen/affinity/pkg/models"
)

const DefaultProfilesTopic = "collaborative-profiles"

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProfilePublisher writes exported profiles to a Kafka topic, keyed by user id.
type ProfilePublisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  *logrus.Logger
}

func NewProfilePublisher(cfg *config.Config, logger *logrus.Logger) *ProfilePublisher {
	topic := cfg.Kafka.Topics.Profiles
	if topic == "" {
		topic = DefaultProfilesTopic
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Key by user id so a user's profiles stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	return newProfilePublisher(writer, topic, cfg.Kafka.WriteTimeout, logger)
}

func newProfilePublisher(writer messageWriter, topic string, timeout time.Duration, logger *logrus.Logger) *ProfilePublisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProfilePublisher{
		writer:  writer,
		topic:   topic,
		timeout: timeout,
		logger:  logger,
	}
}

func (p *ProfilePublisher) Name() string {
	return "kafka"
}

// Publish writes one message per export in a single batch.
func (p *ProfilePublisher) Publish(ctx context.Context, exports []models.ProfileExport) error {
	if len(exports) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(exports))
	for i := range exports {
		msg, err := profileMessage(&exports[i])
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.WithError(err).WithField("topic", p.topic).Error("Failed to publish profiles to Kafka")
		return fmt.Errorf("failed to write profiles to Kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":    p.topic,
		"profiles": len(messages),
	}).Info("Profiles published to Kafka")

	return nil
}

func (p *ProfilePublisher) Close() error {
	return p.writer.Close()
}

func profileMessage(export *models.ProfileExport) (kafka.Message, error) {
	value, err := json.Marshal(export)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal profile export: %w", err)
	}

	userID := ""
	if export.Profile != nil {
		userID = export.Profile.UserID
	}

	return kafka.Message{
		Key:   []byte(userID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "export_id", Value: []byte(export.ID.String())},
			{Key: "user_id", Value: []byte(userID)},
			{Key: "generated_at", Value: []byte(export.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
