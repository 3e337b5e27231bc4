// Package notify turns notification requests into outbox records for the
// external mailer, and logs them when no mailer is attached.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campusconnect/internal/app/outbox"
	"campusconnect/internal/app/policies"
	"campusconnect/internal/app/saga"
	"campusconnect/internal/domain/user"
)

const (
	EventName = "notification.requested"

	TemplateNewChatRequest  = "new_chat_request"
	TemplateRequestRejected = "request_rejected"
)

var ErrOutboxRequired = errors.New("notify: outbox required")

// Requested is the event the mailer consumes.
type Requested struct {
	Template  string            `json:"template"`
	Recipient user.ID           `json:"recipient"`
	Params    map[string]string `json:"params"`
	At        time.Time         `json:"at"`
}

func (e Requested) EventName() string     { return EventName }
func (e Requested) AggregateID() string   { return string(e.Recipient) }
func (e Requested) OccurredAt() time.Time { return e.At }

// OutboxNotifier writes one notification.requested record per call.
type OutboxNotifier struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   policies.Clock
}

func (n *OutboxNotifier) NotifyNewChatRequest(ctx context.Context, receiver user.ID, initiatorName string) error {
	return n.request(ctx, TemplateNewChatRequest, receiver, map[string]string{"initiator_name": initiatorName})
}

func (n *OutboxNotifier) NotifyRequestRejected(ctx context.Context, buyer user.ID, listingTitle, sellerName string) error {
	return n.request(ctx, TemplateRequestRejected, buyer, map[string]string{
		"listing_title": listingTitle,
		"seller_name":   sellerName,
	})
}

func (n *OutboxNotifier) request(ctx context.Context, template string, recipient user.ID, params map[string]string) error {
	if n.Outbox == nil {
		return ErrOutboxRequired
	}
	encoder := n.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	now := time.Now().UTC()
	if n.Clock != nil {
		now = n.Clock.Now()
	}
	rec, err := encoder.Encode(Requested{Template: template, Recipient: recipient, Params: params, At: now})
	if err != nil {
		return err
	}
	return n.Outbox.Add(ctx, rec)
}

// LogSink logs notification requests in place of a mailer.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Name() string { return "notification-log" }

func (s *LogSink) Handles(eventName string) bool { return eventName == EventName }

func (s *LogSink) OnEvent(ctx context.Context, ev outbox.EventRecord) error {
	req, err := outbox.Decode[Requested](ev)
	if err != nil {
		return err
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification requested",
		"event_id", ev.ID, "template", req.Template, "recipient_id", req.Recipient)
	return nil
}

var (
	_ policies.Notifier = (*OutboxNotifier)(nil)
	_ saga.Saga         = (*LogSink)(nil)
)
