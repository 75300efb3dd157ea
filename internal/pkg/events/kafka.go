package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/notification"
	kafkago "github.com/segmentio/kafka-go"
)

type message struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	SubjectID  string                 `json:"subject_id"`
	ActorID    string                 `json:"actor_id"`
	Message    string                 `json:"message"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// KafkaPublisher writes payroll events to a single topic keyed by subject.
type KafkaPublisher struct {
	writer *kafkago.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafkago.Writer{
			Addr:         kafkago.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []notification.Event) error {
	msgs := make([]kafkago.Message, 0, len(events))
	for _, ev := range events {
		msg, err := toKafkaMessage(ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d events: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toKafkaMessage(ev notification.Event) (kafkago.Message, error) {
	payload, err := json.Marshal(message{
		ID:         ev.ID,
		Type:       string(ev.Type),
		SubjectID:  ev.SubjectID,
		ActorID:    ev.ActorID,
		Message:    ev.Message,
		Data:       ev.Data,
		OccurredAt: ev.OccurredAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
	}

	return kafkago.Message{
		Key:   []byte(ev.SubjectID),
		Value: payload,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "event_id", Value: []byte(ev.ID)},
		},
	}, nil
}

// LogPublisher logs events instead of delivering them. Used when no broker
// is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, events []notification.Event) error {
	for _, ev := range events {
		slog.Info("payroll event",
			"event_id", ev.ID,
			"type", ev.Type,
			"subject_id", ev.SubjectID,
			"actor_id", ev.ActorID,
			"message", ev.Message,
		)
	}
	return nil
}

func (LogPublisher) Close() error { return nil }
