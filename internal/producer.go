package internal

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"captioner/internal/captions"

	"github.com/IBM/sarama"
)

type Producer struct {
	config   KafkaConfig
	producer sarama.SyncProducer
}

func NewProducer(config KafkaConfig) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, err
	}

	return newProducer(config, producer), nil
}

func newProducer(config KafkaConfig, producer sarama.SyncProducer) *Producer {
	return &Producer{
		config:   config,
		producer: producer,
	}
}

// SendCaptionEvent publishes event keyed by caption id, so every delivery of
// the same caption lands on one partition.
func (producer *Producer) SendCaptionEvent(event *CaptionEvent) error {
	jsonEvent, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, _, err = producer.producer.SendMessage(&sarama.ProducerMessage{
		Topic: producer.config.CaptionTopic,
		Key:   sarama.StringEncoder(strconv.FormatInt(event.ID, 10)),
		Value: sarama.ByteEncoder(jsonEvent),
	})
	return err
}

func (producer *Producer) Close() error {
	return producer.producer.Close()
}

type (
	CaptionInserter interface {
		InsertCaption(ctx context.Context, who captions.Identity, platform captions.Platform, result *captions.Result) (*CaptionRecord, error)
	}

	EventSender interface {
		SendCaptionEvent(event *CaptionEvent) error
	}
)

// CaptionRecorder stores generated captions and announces them for indexing.
// A failed announcement is only logged: the poller picks the row up later.
type CaptionRecorder struct {
	store  CaptionInserter
	events EventSender
}

func NewCaptionRecorder(store CaptionInserter, events EventSender) *CaptionRecorder {
	return &CaptionRecorder{store: store, events: events}
}

func (r *CaptionRecorder) RecordCaption(ctx context.Context, who captions.Identity, platform captions.Platform, result *captions.Result) error {
	record, err := r.store.InsertCaption(ctx, who, platform, result)
	if err != nil {
		return err
	}

	if r.events == nil {
		return nil
	}

	err = r.events.SendCaptionEvent(&CaptionEvent{
		ID:        record.ID,
		User:      string(who),
		Platform:  record.Platform,
		Caption:   record.Caption,
		Hashtags:  record.Hashtags,
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		slog.Error("Failed to publish caption event", slog.Int64("id", record.ID), slog.String("error", err.Error()))
	}
	return nil
}
