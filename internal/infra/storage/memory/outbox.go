package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	appoutbox "campusconnect/internal/app/outbox"
	"campusconnect/internal/app/saga"
)

// Outbox buffers records and hands them to subscribers on Flush. It stands in
// for the Mongo outbox plus Kafka when the service runs without either.
type Outbox struct {
	mu          sync.Mutex
	pending     []appoutbox.EventRecord
	delivered   []appoutbox.EventRecord
	subscribers []saga.Saga
}

func NewOutbox(subscribers ...saga.Saga) *Outbox {
	return &Outbox{subscribers: subscribers}
}

func (o *Outbox) Subscribe(s saga.Saga) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribers = append(o.subscribers, s)
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, record)
	return nil
}

// Flush delivers pending records in order. A subscriber error does not stop
// delivery to the others; all errors are joined.
func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	batch := o.pending
	o.pending = nil
	o.delivered = append(o.delivered, batch...)
	subs := append([]saga.Saga(nil), o.subscribers...)
	o.mu.Unlock()

	var errList []error
	for _, rec := range batch {
		for _, s := range subs {
			if !s.Handles(rec.Name) {
				continue
			}
			if err := s.OnEvent(ctx, rec); err != nil {
				errList = append(errList, fmt.Errorf("%s: %s: %w", s.Name(), rec.Name, err))
			}
		}
	}
	return errors.Join(errList...)
}

// Records returns everything added so far, delivered or not.
func (o *Outbox) Records() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.delivered)+len(o.pending))
	out = append(out, o.delivered...)
	return append(out, o.pending...)
}

var _ appoutbox.Outbox = (*Outbox)(nil)
