package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"campusconnect/internal/app/handlers/negotiation"
	"campusconnect/internal/app/saga"
	"campusconnect/internal/infra/broker/kafka"
	"campusconnect/internal/infra/config"
	"campusconnect/internal/infra/inbox"
	"campusconnect/internal/infra/notify"
	infraoutbox "campusconnect/internal/infra/outbox"
	"campusconnect/internal/infra/realtime"
)

const inboxTTL = 7 * 24 * time.Hour

type subscription struct {
	name     string
	consumer *kafka.Consumer
	topics   []string
}

// eventPipeline publishes the Mongo outbox to Kafka and runs the consumer
// groups that feed events back into sagas.
type eventPipeline struct {
	producer *kafka.Producer
	worker   *infraoutbox.Worker
	subs     []subscription
}

func newEventPipeline(ctx context.Context, cfg config.Config, b *backend, rejecter *negotiation.Rejecter, hub *realtime.Hub, sink *notify.LogSink, logger *slog.Logger) (*eventPipeline, error) {
	if b.db == nil || b.queue == nil {
		return nil, errors.New("kafka pipeline requires mongo storage")
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	worker := &infraoutbox.Worker{
		Store:       b.queue,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger.With("component", "outbox"),
	}
	p := &eventPipeline{producer: producer, worker: worker}

	settlement := &negotiation.SettlementSaga{Rejecter: rejecter}
	if err := p.subscribeDeduped(ctx, cfg, b, settlement, "sale.confirmed", logger); err != nil {
		p.close()
		return nil, err
	}
	if err := p.subscribeDeduped(ctx, cfg, b, sink, notify.EventName, logger); err != nil {
		p.close()
		return nil, err
	}

	// Every instance needs every message for its own websocket clients, so
	// the realtime group is per instance and skips the shared inbox.
	group := fmt.Sprintf("%s-realtime-%s", cfg.KafkaConsumerGroup, instanceID())
	handler := &kafka.SagaHandler{Sagas: []saga.Saga{hub}, Logger: logger}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, group, nil, handler, logger)
	if err != nil {
		p.close()
		return nil, fmt.Errorf("kafka consumer %s: %w", group, err)
	}
	p.subs = append(p.subs, subscription{
		name:     hub.Name(),
		consumer: consumer,
		topics:   []string{infraoutbox.TopicFor(cfg.KafkaTopicPrefix, "message.sent")},
	})
	return p, nil
}

func (p *eventPipeline) subscribeDeduped(ctx context.Context, cfg config.Config, b *backend, s saga.Saga, eventName string, logger *slog.Logger) error {
	dedup, err := inbox.NewStore(ctx, b.db, s.Name(), inboxTTL)
	if err != nil {
		return err
	}
	group := cfg.KafkaConsumerGroup + "-" + s.Name()
	handler := &kafka.SagaHandler{Sagas: []saga.Saga{s}, Inbox: dedup, Logger: logger}
	consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, group, nil, handler, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer %s: %w", group, err)
	}
	p.subs = append(p.subs, subscription{
		name:     s.Name(),
		consumer: consumer,
		topics:   []string{infraoutbox.TopicFor(cfg.KafkaTopicPrefix, eventName)},
	})
	return nil
}

func (p *eventPipeline) workers() map[string]func(context.Context) error {
	out := map[string]func(context.Context) error{"outbox": p.worker.Run}
	for _, sub := range p.subs {
		sub := sub
		out["consumer:"+sub.name] = func(ctx context.Context) error {
			return sub.consumer.Run(ctx, sub.topics)
		}
	}
	return out
}

func (p *eventPipeline) close() {
	for _, sub := range p.subs {
		if err := sub.consumer.Close(); err != nil {
			slog.Default().Warn("kafka consumer close failed", "consumer", sub.name, "error", err)
		}
	}
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			slog.Default().Warn("kafka producer close failed", "error", err)
		}
	}
}

func instanceID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return uuid.NewString()[:8]
}
