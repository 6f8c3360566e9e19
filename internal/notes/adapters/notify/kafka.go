// Package notify публикует уведомления о напоминаниях в Kafka.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"notekeeper/internal/notes/ports/services"
	"notekeeper/pkg/logger"
)

// Константы для сообщений.
const (
	LogReminderPublished = "reminder notification published"
	errMarshalReminder   = "failed to marshal reminder notification"
	errPublishReminder   = "failed to publish reminder notification"
	errCloseWriter       = "failed to close kafka writer"
)

// Заголовки сообщения.
const (
	HeaderEventType  = "event_type"
	EventReminderDue = "note.reminder.due"
)

// ErrNoBrokers возвращается при пустом списке брокеров.
var ErrNoBrokers = errors.New("kafka brokers are not configured")

// messageWriter - часть kafka.Writer, нужная для публикации.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig - настройки публикации.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// KafkaNotifier реализует services.Notifier поверх kafka-go.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
}

// NewKafkaNotifier создает writer для топика напоминаний.
func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return newKafkaNotifier(writer, cfg.Topic), nil
}

func newKafkaNotifier(writer messageWriter, topic string) *KafkaNotifier {
	return &KafkaNotifier{writer: writer, topic: topic}
}

var _ services.Notifier = (*KafkaNotifier)(nil)

// NotifyReminder публикует напоминание. Ключ сообщения - id заметки, поэтому
// уведомления одной заметки попадают в одну партицию.
func (n *KafkaNotifier) NotifyReminder(ctx context.Context, r services.ReminderNotification) error {
	log := logger.Log(ctx).With(zap.String("method", "KafkaNotifier.NotifyReminder"))

	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("%s: %w", errMarshalReminder, err)
	}

	msg := kafka.Message{
		Key:   []byte(r.NoteID),
		Value: value,
		Time:  r.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(EventReminderDue)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", errPublishReminder, err)
	}

	log.Debug(ctx, LogReminderPublished, zap.String("noteID", r.NoteID), zap.String("topic", n.topic))
	return nil
}

// Close закрывает writer.
func (n *KafkaNotifier) Close() error {
	if err := n.writer.Close(); err != nil {
		return fmt.Errorf("%s: %w", errCloseWriter, err)
	}
	return nil
}
