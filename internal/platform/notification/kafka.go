package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Kafka event types written to the reminder topic.
const (
	EventReminderScheduled = "reminder.scheduled"
	EventRemindersCleared  = "reminders.cancelled"
)

// ReminderEvent is the message contract consumed by the delivery service.
type ReminderEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	Reminder   *Reminder `json:"reminder,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaScheduler publishes reminder schedule and cancel events keyed by user
// id, so one partition sees a user's events in order.
type KafkaScheduler struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaScheduler creates a scheduler writing to topic on brokers.
func NewKafkaScheduler(brokers []string, topic string) *KafkaScheduler {
	return &KafkaScheduler{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
		now: time.Now,
	}
}

func (k *KafkaScheduler) Schedule(ctx context.Context, r Reminder, fireAt time.Time) (string, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.FireAt = fireAt
	r.Status = StatusPending
	if r.CreatedAt.IsZero() {
		r.CreatedAt = k.now().UTC()
	}
	if err := k.publish(ctx, ReminderEvent{Type: EventReminderScheduled, UserID: r.UserID, Reminder: &r}); err != nil {
		return "", err
	}
	return r.ID, nil
}

func (k *KafkaScheduler) CancelAll(ctx context.Context, userID string) error {
	return k.publish(ctx, ReminderEvent{Type: EventRemindersCleared, UserID: userID})
}

func (k *KafkaScheduler) publish(ctx context.Context, evt ReminderEvent) error {
	evt.OccurredAt = k.now().UTC()
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", evt.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.UserID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.Type)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (k *KafkaScheduler) Close() error {
	return k.writer.Close()
}
