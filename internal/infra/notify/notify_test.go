package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/app/outbox"
	"campusconnect/internal/infra/storage/memory"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func TestOutboxNotifierRecordsRequests(t *testing.T) {
	box := memory.NewOutbox()
	at := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	n := &OutboxNotifier{Outbox: box, Clock: fixedClock{at}}

	require.NoError(t, n.NotifyNewChatRequest(context.Background(), "ana", "Ben"))
	require.NoError(t, n.NotifyRequestRejected(context.Background(), "cy", "Desk lamp", "Sam"))
	require.NoError(t, box.Flush(context.Background()))

	recs := box.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, EventName, recs[0].Name)
	assert.Equal(t, "ana", recs[0].Aggregate)

	first, err := outbox.Decode[Requested](recs[0])
	require.NoError(t, err)
	assert.Equal(t, TemplateNewChatRequest, first.Template)
	assert.Equal(t, "Ben", first.Params["initiator_name"])
	assert.Equal(t, at, first.At)

	second, err := outbox.Decode[Requested](recs[1])
	require.NoError(t, err)
	assert.Equal(t, TemplateRequestRejected, second.Template)
	assert.Equal(t, map[string]string{"listing_title": "Desk lamp", "seller_name": "Sam"}, second.Params)
}

func TestOutboxNotifierRequiresOutbox(t *testing.T) {
	err := (&OutboxNotifier{}).NotifyNewChatRequest(context.Background(), "ana", "Ben")
	assert.ErrorIs(t, err, ErrOutboxRequired)
}

func TestLogSinkLogsDeliveredRequests(t *testing.T) {
	var buf bytes.Buffer
	sink := &LogSink{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	box := memory.NewOutbox(sink)
	n := &OutboxNotifier{Outbox: box}

	require.NoError(t, n.NotifyNewChatRequest(context.Background(), "ana", "Ben"))
	require.NoError(t, box.Flush(context.Background()))

	assert.Contains(t, buf.String(), `"template":"new_chat_request"`)
	assert.Contains(t, buf.String(), `"recipient_id":"ana"`)
}
