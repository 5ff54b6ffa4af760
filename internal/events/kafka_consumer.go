package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/segmentio/kafka-go"

	"github.com/ignatzorin/escrow-backend/internal/logger"
)

// Handler обрабатывает событие, прочитанное из топика.
type Handler interface {
	HandleEvent(ctx context.Context, event Event) error
}

// KafkaConsumer читает события переходов из топика и передаёт их
// обработчику. Несколько инстансов делят партиции через consumer group.
type KafkaConsumer struct {
	reader  *kafka.Reader
	handler Handler
}

// NewKafkaConsumer создаёт consumer для заданных брокеров.
func NewKafkaConsumer(brokers []string, topic, groupID string, handler Handler) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10 << 20,
		}),
		handler: handler,
	}
}

// Run читает сообщения до отмены контекста. Ошибка обработки логируется,
// offset всё равно коммитится: доставка уведомлений best-effort и не
// должна останавливать consumer group.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("events: чтение из kafka %w", err)
		}

		c.process(ctx, msg.Value)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && logger.Log != nil {
			logger.Log.Errorf("events: не удалось закоммитить offset: %v", err)
		}
	}
}

func (c *KafkaConsumer) process(ctx context.Context, value []byte) {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		if logger.Log != nil {
			logger.Log.Errorf("events: нечитаемое событие пропущено: %v", err)
		}
		return
	}

	if err := c.handler.HandleEvent(ctx, event); err != nil && logger.Log != nil {
		logger.Log.WithField("event", event.Type).Errorf("events: обработка события: %v", err)
	}
}

// Close закрывает reader.
func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
