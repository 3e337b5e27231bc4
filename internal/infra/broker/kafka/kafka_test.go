package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/app/outbox"
	"campusconnect/internal/app/saga"
)

type recordingSaga struct {
	handles string
	err     error
	seen    []outbox.EventRecord
}

func (s *recordingSaga) Name() string                  { return "recording" }
func (s *recordingSaga) Handles(eventName string) bool { return eventName == s.handles }
func (s *recordingSaga) OnEvent(ctx context.Context, ev outbox.EventRecord) error {
	s.seen = append(s.seen, ev)
	return s.err
}

type memoryInbox struct {
	ids       map[string]bool
	forgotten []string
}

func (m *memoryInbox) Seen(ctx context.Context, id string) (bool, error) {
	if m.ids == nil {
		m.ids = map[string]bool{}
	}
	if m.ids[id] {
		return true, nil
	}
	m.ids[id] = true
	return false, nil
}

func (m *memoryInbox) Forget(ctx context.Context, id string) error {
	delete(m.ids, id)
	m.forgotten = append(m.forgotten, id)
	return nil
}

func cloudEvent(t *testing.T, id, typ string, data any) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"specversion": "1.0",
		"id":          id,
		"type":        typ,
		"source":      "app://campusconnect",
		"subject":     "conv-1",
		"time":        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		"data":        data,
	})
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "sale.events.v1", Value: raw}
}

func TestSagaHandlerDeliversOncePerEventID(t *testing.T) {
	s := &recordingSaga{handles: "sale.confirmed"}
	h := &SagaHandler{Sagas: []saga.Saga{s}, Inbox: &memoryInbox{}}
	msg := cloudEvent(t, "evt-1", "sale.confirmed", map[string]string{"Listing": "l-1"})

	require.NoError(t, h.Handle(context.Background(), msg))
	require.NoError(t, h.Handle(context.Background(), msg))

	require.Len(t, s.seen, 1)
	assert.Equal(t, "evt-1", s.seen[0].ID)
	assert.Equal(t, "conv-1", s.seen[0].Aggregate)
	assert.JSONEq(t, `{"Listing":"l-1"}`, string(s.seen[0].Payload))
}

func TestSagaHandlerForgetsFailedEvents(t *testing.T) {
	inbox := &memoryInbox{}
	s := &recordingSaga{handles: "sale.confirmed", err: errors.New("mongo down")}
	h := &SagaHandler{Sagas: []saga.Saga{s}, Inbox: inbox}
	msg := cloudEvent(t, "evt-2", "sale.confirmed", map[string]string{})

	require.Error(t, h.Handle(context.Background(), msg))
	assert.Equal(t, []string{"evt-2"}, inbox.forgotten)

	s.err = nil
	require.NoError(t, h.Handle(context.Background(), msg))
	assert.Len(t, s.seen, 2)
}

func TestSagaHandlerIgnoresUnhandledTypes(t *testing.T) {
	inbox := &memoryInbox{}
	s := &recordingSaga{handles: "sale.confirmed"}
	h := &SagaHandler{Sagas: []saga.Saga{s}, Inbox: inbox}

	require.NoError(t, h.Handle(context.Background(), cloudEvent(t, "evt-3", "sale.requested", map[string]string{})))
	assert.Empty(t, s.seen)
	assert.Empty(t, inbox.ids)
}

func TestDecodeRecordRejectsGarbage(t *testing.T) {
	_, err := DecodeRecord([]byte("not json"))
	assert.ErrorIs(t, err, ErrMalformedEvent)
	_, err = DecodeRecord([]byte(`{"type":"sale.confirmed"}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestProducerPublishesHeaders(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	sync := mocks.NewSyncProducer(t, cfg)
	sync.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "sale.events.v1" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != "ce_id" {
			return errors.New("missing ce_id header")
		}
		return nil
	})
	p := newProducerWith(sync)
	defer p.Close()

	err := p.Publish(context.Background(), "sale.events.v1", "conv-1", []byte(`{}`), map[string]string{"ce_id": "evt-1"})
	require.NoError(t, err)
}
