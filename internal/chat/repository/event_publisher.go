package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"old_vibes/internal/chat/domain"
	"old_vibes/pkg/database"

	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
)

// EventPublisher publishes integration events
type EventPublisher interface {
	Publish(ctx context.Context, evt domain.ChatEvent) error
	Close() error
}

type kafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher events keyed by conversation id, so one conversation keeps partition order
func NewKafkaEventPublisher(writer *kafka.Writer) EventPublisher {
	return &kafkaEventPublisher{writer: writer}
}

func (p *kafkaEventPublisher) Publish(ctx context.Context, evt domain.ChatEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.ConversationID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(evt.Type)},
		},
	})
}

func (p *kafkaEventPublisher) Close() error {
	return p.writer.Close()
}

type rabbitEventPublisher struct {
	repo     database.RabbitRepo
	exchange string
}

// NewRabbitEventPublisher events routed by type on a topic exchange
func NewRabbitEventPublisher(repo database.RabbitRepo, exchange string) EventPublisher {
	return &rabbitEventPublisher{repo: repo, exchange: exchange}
}

func (p *rabbitEventPublisher) Publish(_ context.Context, evt domain.ChatEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.repo.Publish(p.exchange, string(evt.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    evt.OccurredAt,
		Type:         string(evt.Type),
		Body:         body,
	})
}

func (p *rabbitEventPublisher) Close() error {
	return p.repo.GetRabbit().Close()
}

type noopEventPublisher struct{}

// NewNoopEventPublisher EventPublisher dropping every event
func NewNoopEventPublisher() EventPublisher {
	return noopEventPublisher{}
}

func (noopEventPublisher) Publish(context.Context, domain.ChatEvent) error { return nil }

func (noopEventPublisher) Close() error { return nil }
