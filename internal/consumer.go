package internal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"
)

type (
	CaptionIndexer interface {
		IndexCaption(ctx context.Context, event *CaptionEvent) error
	}

	IndexMarker interface {
		MarkIndexed(ctx context.Context, id int64) error
	}
)

// Consumer moves caption events from Kafka into the search index.
type Consumer struct {
	config  KafkaConfig
	index   CaptionIndexer
	markers IndexMarker
}

func NewConsumer(config KafkaConfig, index CaptionIndexer, markers IndexMarker) *Consumer {
	return &Consumer{
		config:  config,
		index:   index,
		markers: markers,
	}
}

func (consumer *Consumer) Run(ctx context.Context, consumerGroup sarama.ConsumerGroup) error {
	for {
		if err := consumerGroup.Consume(ctx, []string{consumer.config.CaptionTopic}, consumer); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			slog.Error("Error from consumer", slog.String("error", err.Error()))
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				slog.Info("message channel was closed")
				return nil
			}
			if message.Topic != consumer.config.CaptionTopic {
				slog.Error("Unknown topic", slog.String("topic", message.Topic))
				session.MarkMessage(message, "")
				continue
			}
			if err := consumer.ProcessCaption(session.Context(), message.Value); err != nil {
				slog.Error("Error processing message", slog.String("error", err.Error()))
				return err
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// ProcessCaption indexes one event and stamps the row. Malformed payloads are
// dropped so they cannot block the partition.
func (consumer *Consumer) ProcessCaption(ctx context.Context, value []byte) error {
	var event CaptionEvent

	if err := json.Unmarshal(value, &event); err != nil {
		slog.Error("Dropping malformed caption event", slog.String("error", err.Error()))
		return nil
	}

	slog.Info("Indexing caption", slog.Int64("id", event.ID), slog.String("platform", event.Platform))

	if err := consumer.index.IndexCaption(ctx, &event); err != nil {
		return err
	}

	return consumer.markers.MarkIndexed(ctx, event.ID)
}
