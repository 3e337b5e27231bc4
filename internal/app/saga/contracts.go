package saga

import (
	"context"

	"campusconnect/internal/app/outbox"
)

// Saga reacts to published events and drives follow-up steps. OnEvent must
// be safe to call more than once for the same record.
type Saga interface {
	Name() string
	Handles(eventName string) bool
	OnEvent(ctx context.Context, ev outbox.EventRecord) error
}
