package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"campusconnect/internal/app/outbox"
	"campusconnect/internal/app/saga"
)

// Deduper remembers processed event ids for one consumer.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// SagaHandler decodes CloudEvents back into outbox records and hands them to
// the sagas that handle their type. With a Deduper, an event id is processed
// at most once per consumer.
type SagaHandler struct {
	Sagas  []saga.Saga
	Inbox  Deduper
	Logger *slog.Logger
}

type envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Subject string          `json:"subject"`
	Time    time.Time       `json:"time"`
	Data    json.RawMessage `json:"data"`
}

var ErrMalformedEvent = errors.New("kafka: malformed cloud event")

func (h *SagaHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	rec, err := DecodeRecord(msg.Value)
	if err != nil {
		return err
	}
	var targets []saga.Saga
	for _, s := range h.Sagas {
		if s.Handles(rec.Name) {
			targets = append(targets, s)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	if h.Inbox != nil {
		seen, err := h.Inbox.Seen(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("kafka: inbox: %w", err)
		}
		if seen {
			h.logger().DebugContext(ctx, "duplicate event skipped", "event_id", rec.ID, "event", rec.Name)
			return nil
		}
	}
	var failures []error
	for _, s := range targets {
		if err := s.OnEvent(ctx, rec); err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	if err := errors.Join(failures...); err != nil {
		if h.Inbox != nil {
			if ferr := h.Inbox.Forget(ctx, rec.ID); ferr != nil {
				h.logger().WarnContext(ctx, "inbox forget failed", "event_id", rec.ID, "error", ferr)
			}
		}
		return err
	}
	return nil
}

// DecodeRecord parses a structured-mode CloudEvent produced by the outbox
// worker.
func DecodeRecord(value []byte) (outbox.EventRecord, error) {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return outbox.EventRecord{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.ID == "" || env.Type == "" {
		return outbox.EventRecord{}, ErrMalformedEvent
	}
	return outbox.EventRecord{
		ID:         env.ID,
		Name:       env.Type,
		Aggregate:  env.Subject,
		Payload:    env.Data,
		OccurredAt: env.Time.UTC(),
	}, nil
}

func (h *SagaHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = (*SagaHandler)(nil)
