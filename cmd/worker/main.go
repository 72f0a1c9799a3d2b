package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"captioner/internal"

	"github.com/IBM/sarama"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errNotConfigured = errors.New("worker needs kafka, elasticsearch and postgres to be configured")

func main() {
	cfg, err := internal.ReadConfig()
	if err != nil {
		slog.Error("Failed to read config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()

	if err != nil {
		slog.Error("Worker stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run returns once the consumer stops; every client it opened is closed by then.
func run(ctx context.Context, cfg *internal.AppConfig) error {
	if !cfg.KafkaEnabled() || !cfg.ElasticsearchEnabled() || cfg.Postgres.ConnectionUrl == "" {
		return errNotConfigured
	}

	producer, err := internal.NewProducer(cfg.Kafka)
	if err != nil {
		return fmt.Errorf("creating producer: %w", err)
	}
	defer producer.Close()

	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	consumerGroup, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Kafka.Group, saramaConfig)
	if err != nil {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	defer consumerGroup.Close()

	dbpool, err := pgxpool.New(ctx, cfg.Postgres.ConnectionUrl)
	if err != nil {
		return fmt.Errorf("creating postgres pool: %w", err)
	}
	defer dbpool.Close()

	es, err := elasticsearch.NewTypedClient(cfg.Elasticsearch)
	if err != nil {
		return fmt.Errorf("creating elasticsearch client: %w", err)
	}

	index := internal.NewCaptionSearch(es, cfg.ElasticsearchIndex)
	if err := index.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("preparing index %s: %w", cfg.ElasticsearchIndex, err)
	}

	store := internal.NewStore(dbpool)
	consumer := internal.NewConsumer(cfg.Kafka, index, store)
	poller := internal.NewPoller(producer, store, cfg.PollPeriod)

	go poller.Run(ctx)

	slog.Info("Starting consumer", slog.String("topic", cfg.Kafka.CaptionTopic))
	if err := consumer.Run(ctx, consumerGroup); err != nil {
		return fmt.Errorf("running consumer: %w", err)
	}
	return nil
}
