package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"campusconnect/internal/domain/shared/events"
)

// EventRecord is one domain event serialized for durable delivery.
type EventRecord struct {
	ID         string
	Name       string
	Aggregate  string
	Payload    []byte
	OccurredAt time.Time
	Headers    map[string]string
}

// Outbox accepts records inside the caller's unit of work. Flush hands
// accumulated records to in-process subscribers and is a no-op for stores
// drained by a background worker.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	newID := e.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	return EventRecord{
		ID:         newID(),
		Name:       ev.EventName(),
		Aggregate:  ev.AggregateID(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Headers:    map[string]string{},
	}, nil
}

// Source is anything that buffers domain events, typically an aggregate
// embedding events.EventRecorder.
type Source interface {
	Drain() []events.DomainEvent
}

// RecordDomainEvents drains every source and adds its events to box in order.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, sources ...Source) error {
	if box == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, src := range sources {
		if src == nil {
			continue
		}
		for _, ev := range src.Drain() {
			rec, err := encoder.Encode(ev)
			if err != nil {
				return err
			}
			if err := box.Add(ctx, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Decode unmarshals a record payload into the event struct it was built from.
func Decode[T any](rec EventRecord) (T, error) {
	var out T
	err := json.Unmarshal(rec.Payload, &out)
	return out, err
}
