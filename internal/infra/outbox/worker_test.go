package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	due    []*EventDocument
	sent   []string
	failed map[string]string
}

func (q *fakeQueue) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	if len(q.due) == 0 {
		return nil, nil
	}
	doc := q.due[0]
	q.due = q.due[1:]
	doc.ClaimedBy = workerID
	return doc, nil
}

func (q *fakeQueue) MarkSent(ctx context.Context, id string) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	if q.failed == nil {
		q.failed = map[string]string{}
	}
	q.failed[id] = errMsg
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
	headers map[string]string
}

type fakeProducer struct {
	out  []published
	fail bool
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.out = append(p.out, published{topic: topic, key: key, payload: payload, headers: headers})
	return nil
}

func doc(id, name, payload string) *EventDocument {
	return &EventDocument{
		ID:         id,
		Name:       name,
		Aggregate:  "conv-1",
		Payload:    []byte(payload),
		OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	q := &fakeQueue{due: []*EventDocument{
		doc("evt-1", "sale.confirmed", `{"Listing":"l-1"}`),
		doc("evt-2", "message.sent", `{"Content":"hi"}`),
	}}
	p := &fakeProducer{}
	w := &Worker{Store: q, Producer: p, TopicPrefix: "dev."}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"evt-1", "evt-2"}, q.sent)

	require.Len(t, p.out, 2)
	assert.Equal(t, "dev.sale.events.v1", p.out[0].topic)
	assert.Equal(t, "dev.message.events.v1", p.out[1].topic)
	assert.Equal(t, "conv-1", p.out[0].key)
	assert.Equal(t, "application/cloudevents+json", p.out[0].headers["content-type"])

	var ce CloudEvent
	require.NoError(t, json.Unmarshal(p.out[0].payload, &ce))
	assert.Equal(t, "evt-1", ce.ID)
	assert.Equal(t, "sale.confirmed", ce.Type)
	assert.Equal(t, "app://campusconnect", ce.Source)
	assert.Equal(t, map[string]any{"Listing": "l-1"}, ce.Data)
}

func TestDrainMarksFailures(t *testing.T) {
	q := &fakeQueue{due: []*EventDocument{
		doc("evt-1", "sale.confirmed", `{}`),
		doc("evt-bad", "sale.confirmed", `not json`),
	}}
	w := &Worker{Store: q, Producer: &fakeProducer{fail: true}, Backoff: []time.Duration{time.Second}}

	_, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, q.sent)
	assert.Equal(t, "broker unavailable", q.failed["evt-1"])
	assert.Contains(t, q.failed, "evt-bad")
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, "sale.events.v1", TopicFor("", "sale.confirmed"))
	assert.Equal(t, "p.notification.events.v1", TopicFor("p.", "notification.requested"))
	assert.Equal(t, "plain.events.v1", TopicFor("", "plain"))
}

func TestRunRequiresDependencies(t *testing.T) {
	assert.ErrorIs(t, (&Worker{}).Run(context.Background()), ErrWorkerNotConfigured)
}
