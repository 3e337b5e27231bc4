package policies

import (
	"context"
	"time"

	"campusconnect/internal/domain/user"
)

// Notifier requests user-facing notifications. Delivery is best-effort:
// callers log failures and carry on.
type Notifier interface {
	NotifyNewChatRequest(ctx context.Context, receiver user.ID, initiatorName string) error
	NotifyRequestRejected(ctx context.Context, buyer user.ID, listingTitle, sellerName string) error
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
